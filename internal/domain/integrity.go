package domain

import "fmt"

// ListorRef locates one checker reference to a listor id.
type ListorRef struct {
	BaselineID int
	Checker    int
	ListorID   int
}

func (r ListorRef) String() string {
	return fmt.Sprintf("baseline %d checker %d -> listor %d", r.BaselineID, r.Checker, r.ListorID)
}

// DanglingListorRefs returns every checker reference to a listor id that has
// no matching listor, in baseline then checker order.
func (c ConfigurationState) DanglingListorRefs() []ListorRef {
	known := make(map[int]struct{}, len(c.Listor))
	for _, l := range c.Listor {
		known[l.ID] = struct{}{}
	}

	var refs []ListorRef
	for _, b := range c.Baseline {
		for i, chk := range b.Checker {
			for _, id := range chk.Listor {
				if _, ok := known[id]; !ok {
					refs = append(refs, ListorRef{BaselineID: b.ID, Checker: i, ListorID: id})
				}
			}
		}
	}
	return refs
}

// CheckListorRefs returns ErrUnknownListor if any checker of b references a
// listor id not present in c.
func (c ConfigurationState) CheckListorRefs(b Baseline) error {
	for i, chk := range b.Checker {
		for _, id := range chk.Listor {
			if c.ListorIndex(id) < 0 {
				return fmt.Errorf("%w: checker %d references listor %d", ErrUnknownListor, i, id)
			}
		}
	}
	return nil
}
