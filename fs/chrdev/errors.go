package chrdev

import "errors"

var errNoDriver = errors.New("chrdev: no driver registered for major")
