package docrelay

// WatermarkTracker remembers the highest document ID already processed.
// It starts unset; the first non-empty listing primes it via Bootstrap
// without triggering downloads, so documents that predate the first run
// are never backfilled. After that the watermark only moves forward.
type WatermarkTracker struct {
	watermark int64
	primed    bool
}

func NewWatermarkTracker() *WatermarkTracker {
	return &WatermarkTracker{}
}

// RestoreWatermarkTracker rebuilds a primed tracker from a persisted
// watermark value. A value <= 0 yields an unset tracker.
func RestoreWatermarkTracker(watermark int64) *WatermarkTracker {
	if watermark <= 0 {
		return &WatermarkTracker{}
	}
	return &WatermarkTracker{watermark: watermark, primed: true}
}

func (t *WatermarkTracker) Primed() bool {
	if t == nil {
		return false
	}
	return t.primed
}

func (t *WatermarkTracker) Watermark() int64 {
	if t == nil {
		return 0
	}
	return t.watermark
}

// ShouldProcess reports whether id is new work. An unset tracker never
// processes anything.
func (t *WatermarkTracker) ShouldProcess(id int64) bool {
	if t == nil || !t.primed {
		return false
	}
	return id > t.watermark
}

// Bootstrap primes the tracker at maxVisible. It is a no-op once primed.
func (t *WatermarkTracker) Bootstrap(maxVisible int64) {
	if t == nil || t.primed {
		return
	}
	t.watermark = maxVisible
	t.primed = true
}

// Advance moves the watermark to id. Callers advance in ascending order,
// one call per successfully downloaded document, so after a poll the
// watermark equals the highest id confirmed on disk.
func (t *WatermarkTracker) Advance(id int64) {
	if t == nil || !t.primed {
		return
	}
	if id > t.watermark {
		t.watermark = id
	}
}
