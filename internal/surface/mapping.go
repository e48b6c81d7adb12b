package surface

// Mapper maps a position in the document before an edit to the position
// after it. Implementations must be monotonic.
type Mapper interface {
	Map(pos int) int
}

// AssocMapper also lets callers choose which side a position sticks to when
// content is inserted exactly at it: assoc < 0 keeps it before the inserted
// content, assoc > 0 moves it after.
type AssocMapper interface {
	Mapper
	MapAssoc(pos, assoc int) int
}

// MapperFunc adapts a plain function to Mapper.
type MapperFunc func(pos int) int

func (f MapperFunc) Map(pos int) int { return f(pos) }

// Replacement records that OldSize positions starting at Start were
// replaced by NewSize positions.
type Replacement struct {
	Start   int
	OldSize int
	NewSize int
}

// StepMap is the position map of a single edit. Replacements are ordered by
// Start and expressed in pre-edit coordinates.
type StepMap struct {
	Ranges []Replacement
}

// InsertMap describes inserting size positions at pos.
func InsertMap(pos, size int) StepMap {
	return StepMap{Ranges: []Replacement{{Start: pos, OldSize: 0, NewSize: size}}}
}

// DeleteMap describes deleting [from, to).
func DeleteMap(from, to int) StepMap {
	return StepMap{Ranges: []Replacement{{Start: from, OldSize: to - from, NewSize: 0}}}
}

// ReplaceMap describes replacing [from, to) with size positions.
func ReplaceMap(from, to, size int) StepMap {
	return StepMap{Ranges: []Replacement{{Start: from, OldSize: to - from, NewSize: size}}}
}

func (m StepMap) Map(pos int) int { return m.MapAssoc(pos, 1) }

func (m StepMap) MapAssoc(pos, assoc int) int {
	diff := 0
	for _, r := range m.Ranges {
		if r.Start > pos {
			break
		}
		end := r.Start + r.OldSize
		if pos <= end {
			side := assoc
			if r.OldSize > 0 {
				switch pos {
				case r.Start:
					side = -1
				case end:
					side = 1
				}
			}
			if side < 0 {
				return r.Start + diff
			}
			return r.Start + diff + r.NewSize
		}
		diff += r.NewSize - r.OldSize
	}
	return pos + diff
}

// Mapping applies a sequence of step maps in order.
type Mapping []StepMap

func (m Mapping) Map(pos int) int { return m.MapAssoc(pos, 1) }

func (m Mapping) MapAssoc(pos, assoc int) int {
	for _, step := range m {
		pos = step.MapAssoc(pos, assoc)
	}
	return pos
}

// MapWith maps pos through m, honouring assoc when m supports it.
func MapWith(m Mapper, pos, assoc int) int {
	if am, ok := m.(AssocMapper); ok {
		return am.MapAssoc(pos, assoc)
	}
	return m.Map(pos)
}
