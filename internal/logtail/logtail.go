package logtail

import "strings"

// Ring keeps the most recent lines up to a fixed capacity. The zero value
// discards everything; use NewRing.
type Ring struct {
	lines []string
	next  int
	count int
}

// NewRing returns a Ring holding at most size lines.
func NewRing(size int) *Ring {
	if size <= 0 {
		return &Ring{}
	}
	return &Ring{lines: make([]string, size)}
}

// Add appends line, evicting the oldest when full. Blank lines are ignored.
func (r *Ring) Add(line string) {
	if r == nil || len(r.lines) == 0 {
		return
	}
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.count < len(r.lines) {
		r.count++
	}
}

// AddNew appends line unless it repeats the newest line. Status payloads
// resend the same trailing log entry on every poll.
func (r *Ring) AddNew(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	if r == nil || len(r.lines) == 0 || strings.TrimSpace(line) == "" {
		return false
	}
	if last, ok := r.Last(); ok && last == line {
		return false
	}
	r.Add(line)
	return true
}

// Last returns the newest line.
func (r *Ring) Last() (string, bool) {
	if r == nil || r.count == 0 {
		return "", false
	}
	idx := (r.next - 1 + len(r.lines)) % len(r.lines)
	return r.lines[idx], true
}

// Len reports how many lines are held.
func (r *Ring) Len() int {
	if r == nil {
		return 0
	}
	return r.count
}

// Lines returns the held lines, oldest first.
func (r *Ring) Lines() []string {
	if r == nil || r.count == 0 {
		return nil
	}
	size := len(r.lines)
	lines := make([]string, r.count)
	if r.count == size {
		for i := 0; i < r.count; i++ {
			lines[i] = r.lines[(r.next+i)%size]
		}
	} else {
		copy(lines, r.lines[:r.count])
	}
	return lines
}
