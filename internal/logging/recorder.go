package logging

import "sync"

// Entry is one log call captured by a Recorder
type Entry struct {
	Level   string
	Message string
	Fields  []Field
}

// Field returns the value of the named field and whether it was set
func (e Entry) Field(key string) (interface{}, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Recorder is a Logger that keeps entries in memory, for tests
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	fields  []Field
}

// NewRecorder creates an empty Recorder
func NewRecorder() *Recorder {
	return &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}}
}

func (r *Recorder) log(level, msg string, fields []Field) {
	all := make([]Field, 0, len(r.fields)+len(fields))
	all = append(all, r.fields...)
	all = append(all, fields...)

	r.mu.Lock()
	defer r.mu.Unlock()
	*r.entries = append(*r.entries, Entry{Level: level, Message: msg, Fields: all})
}

func (r *Recorder) Debug(msg string, fields ...Field) { r.log("debug", msg, fields) }
func (r *Recorder) Info(msg string, fields ...Field)  { r.log("info", msg, fields) }
func (r *Recorder) Warn(msg string, fields ...Field)  { r.log("warn", msg, fields) }
func (r *Recorder) Error(msg string, fields ...Field) { r.log("error", msg, fields) }

// With shares the entry buffer with the parent
func (r *Recorder) With(fields ...Field) Logger {
	merged := append(append([]Field{}, r.fields...), fields...)
	return &Recorder{mu: r.mu, entries: r.entries, fields: merged}
}

func (r *Recorder) Named(string) Logger { return r }

// Entries returns a copy of the captured entries
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(*r.entries))
	copy(out, *r.entries)
	return out
}

// Count returns the number of entries at a level
func (r *Recorder) Count(level string) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}
