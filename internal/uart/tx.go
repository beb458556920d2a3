package uart

// Tx shifts queued words out onto the line. Words follow each other with no
// idle time between the stop bit of one and the start bit of the next.
type Tx struct {
	cfg   Config
	queue []uint16

	active bool
	shift  uint16
	bit    int
	cycle  int
	sent   uint64
}

// NewTx creates a transmitter.
func NewTx(cfg Config) (*Tx, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tx{cfg: cfg}, nil
}

// Write queues words. Bits above DataBits are ignored.
func (t *Tx) Write(words ...uint16) {
	for _, w := range words {
		t.queue = append(t.queue, w&t.cfg.mask())
	}
}

// WriteBytes queues one word per byte.
func (t *Tx) WriteBytes(b []byte) {
	for _, c := range b {
		t.Write(uint16(c))
	}
}

// Busy reports whether a word is on the line or queued.
func (t *Tx) Busy() bool { return t.active || len(t.queue) > 0 }

// Sent returns the number of words completed.
func (t *Tx) Sent() uint64 { return t.sent }

// Tick advances one clock cycle and returns the line level for it.
func (t *Tx) Tick() bool {
	if !t.active {
		if len(t.queue) == 0 {
			return true
		}
		t.shift = t.queue[0]
		t.queue = t.queue[1:]
		t.active = true
		t.bit, t.cycle = 0, 0
	}

	level := t.level()
	t.cycle++
	if t.cycle == t.cfg.Prescale {
		t.cycle = 0
		t.bit++
		if t.bit == t.cfg.BitsPerWord() {
			t.active = false
			t.sent++
		}
	}
	return level
}

// level returns the line level of the current bit period.
func (t *Tx) level() bool {
	switch {
	case t.bit == 0:
		return false
	case t.bit > t.cfg.DataBits:
		return true
	default:
		return t.shift&(1<<uint(t.bit-1)) != 0
	}
}
