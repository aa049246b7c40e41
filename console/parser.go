package console

// state is the ANSI escape-sequence parser's state (spec §4.8: "a 5-state
// machine {Normal, Escape, Square, GetPars, GotPars}").
type state int

const (
	stateNormal state = iota
	stateEscape
	stateSquare
	stateGetPars
	stateGotPars
)

// maxPars is the parameter accumulation limit (spec §4.8: "up to 16
// parameters").
const maxPars = 16

// parser drives the state machine byte by byte. It holds no rendering
// state of itself — Console, through its plain and csi methods, is the
// dispatch target that actually moves the cursor, paints cells, and so on.
type parser struct {
	state  state
	pars   [maxPars]int
	npar   int
	question bool // '?' private-mode prefix (?25h/l)
}

// dispatch is implemented by Console; the parser calls back into it once
// a complete sequence (or a single plain byte) is recognized.
type dispatch interface {
	plain(b byte)
	csi(cmd byte, pars []int, question bool)
}

func (p *parser) feed(b byte, d dispatch) {
	switch p.state {
	case stateNormal:
		if b == 0x1b {
			p.state = stateEscape
			return
		}
		d.plain(b)

	case stateEscape:
		switch b {
		case '[':
			p.state = stateSquare
			p.npar = 0
			p.question = false
			for i := range p.pars {
				p.pars[i] = 0
			}
		default:
			// Unrecognized single-character escape: drop back to Normal:
			// spec §4.8 only names CSI-form commands.
			p.state = stateNormal
		}

	case stateSquare:
		if b == '?' {
			p.question = true
			p.state = stateGetPars
			return
		}
		p.state = stateGetPars
		fallthrough

	case stateGetPars:
		if b >= '0' && b <= '9' {
			if p.npar == 0 {
				p.npar = 1
			}
			idx := p.npar - 1
			if idx < maxPars {
				p.pars[idx] = p.pars[idx]*10 + int(b-'0')
			}
			return
		}
		if b == ';' {
			if p.npar < maxPars {
				p.npar++
			}
			return
		}
		p.state = stateGotPars
		fallthrough

	case stateGotPars:
		d.csi(b, p.pars[:p.npar], p.question)
		p.state = stateNormal
	}
}
