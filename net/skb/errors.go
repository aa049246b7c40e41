package skb

import "errors"

var (
	errShort      = errors.New("skb: not enough bytes")
	errNoHeadroom = errors.New("skb: insufficient headroom reserved")
)
