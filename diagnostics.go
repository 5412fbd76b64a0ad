package modbus

// BusDiagnostics is a snapshot of the counters an Instance keeps: the set
// an embedded slave engine (not a bus analyzer) needs.
type BusDiagnostics struct {
	Messages      int
	Broadcasts    int
	CommErrors    int
	Exceptions    int
	ExceptionCode map[byte]int
}

// diagnostics serializes counter updates through one goroutine, the same
// channel-owned-state idiom used for the register file.
type diagnostics struct {
	ops  chan func(*BusDiagnostics)
	stop chan struct{}
}

func newDiagnostics() *diagnostics {
	d := &diagnostics{
		ops:  make(chan func(*BusDiagnostics), 8),
		stop: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *diagnostics) run() {
	state := BusDiagnostics{ExceptionCode: map[byte]int{}}
	for {
		select {
		case fn := <-d.ops:
			fn(&state)
		case <-d.stop:
			return
		}
	}
}

func (d *diagnostics) message(broadcast bool) {
	d.ops <- func(s *BusDiagnostics) {
		s.Messages++
		if broadcast {
			s.Broadcasts++
		}
	}
}

func (d *diagnostics) commError() {
	d.ops <- func(s *BusDiagnostics) { s.CommErrors++ }
}

func (d *diagnostics) exception(code byte) {
	d.ops <- func(s *BusDiagnostics) {
		s.Exceptions++
		s.ExceptionCode[code]++
	}
}

func (d *diagnostics) snapshot() BusDiagnostics {
	result := make(chan BusDiagnostics, 1)
	d.ops <- func(s *BusDiagnostics) {
		codes := make(map[byte]int, len(s.ExceptionCode))
		for k, v := range s.ExceptionCode {
			codes[k] = v
		}
		result <- BusDiagnostics{
			Messages:      s.Messages,
			Broadcasts:    s.Broadcasts,
			CommErrors:    s.CommErrors,
			Exceptions:    s.Exceptions,
			ExceptionCode: codes,
		}
	}
	return <-result
}
