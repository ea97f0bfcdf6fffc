package eval

import "math/rand"

// rnd implements RND's stateful, reseedable sequence: a positive or
// omitted argument draws the next value, zero repeats the last draw,
// and a negative argument reseeds deterministically from that argument
// before drawing (GW-BASIC's RND(-n) behavior of restarting a known
// sequence, used by programs that want reproducible "random" output).
type rnd struct {
	src  *rand.Rand
	last float64
}

func newRnd(seed int64) *rnd {
	return &rnd{src: rand.New(rand.NewSource(seed))}
}

func (r *rnd) next(n float64) float64 {
	switch {
	case n < 0:
		r.src = rand.New(rand.NewSource(int64(n)))
		r.last = r.src.Float64()
	case n == 0:
		// repeat last; fall through with whatever r.last currently is
	default:
		r.last = r.src.Float64()
	}
	return r.last
}
