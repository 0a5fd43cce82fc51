package models

import "time"

// PageStatus is the lifecycle state of one page of a book.
type PageStatus string

const (
	StatusAvailable  PageStatus = "available"
	StatusInProgress PageStatus = "in-progress"
	StatusCompleted  PageStatus = "completed"
)

// PageRecord is one entry of a book's page ledger. Pointer fields serialize as
// null so the persisted document always carries every key.
type PageRecord struct {
	Number      int        `json:"number"`
	Status      PageStatus `json:"status"`
	ClaimedBy   *string    `json:"claimedBy"`
	ClaimedByID *string    `json:"claimedById"`
	ClaimedAt   *time.Time `json:"claimedAt"`
	CompletedAt *time.Time `json:"completedAt"`
	Thumbnail   *string    `json:"thumbnail"`
}

// NewAvailablePage returns a fresh record for page n with no claim.
func NewAvailablePage(n int) PageRecord {
	return PageRecord{Number: n, Status: StatusAvailable}
}

// ClaimedByUser reports whether userID currently holds the claim on the page.
func (p PageRecord) ClaimedByUser(userID string) bool {
	return p.ClaimedByID != nil && *p.ClaimedByID == userID
}

// Claimant returns the display name of the current claimant, or "".
func (p PageRecord) Claimant() string {
	if p.ClaimedBy == nil {
		return ""
	}
	return *p.ClaimedBy
}

// ClearClaim returns the page to available and drops every claim field.
func (p *PageRecord) ClearClaim() {
	p.Status = StatusAvailable
	p.ClaimedBy = nil
	p.ClaimedByID = nil
	p.ClaimedAt = nil
	p.CompletedAt = nil
}

// Ledger is the ordered page list of one book. pages[i].Number == i+1.
type Ledger []PageRecord

// Page returns a pointer into the ledger for page number n, or nil when n is
// outside the ledger's range.
func (l Ledger) Page(n int) *PageRecord {
	if n < 1 || n > len(l) {
		return nil
	}
	return &l[n-1]
}

// Completed counts pages in the completed state.
func (l Ledger) Completed() int {
	count := 0
	for _, p := range l {
		if p.Status == StatusCompleted {
			count++
		}
	}
	return count
}

// Dense reports whether every record's number equals its 1-based position.
func (l Ledger) Dense() bool {
	for i, p := range l {
		if p.Number != i+1 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers can compare before/after states.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for i, p := range l {
		out[i] = p.Clone()
	}
	return out
}

// Clone returns a copy that shares no pointers with p.
func (p PageRecord) Clone() PageRecord {
	c := p
	c.ClaimedBy = cloneString(p.ClaimedBy)
	c.ClaimedByID = cloneString(p.ClaimedByID)
	c.ClaimedAt = cloneTime(p.ClaimedAt)
	c.CompletedAt = cloneTime(p.CompletedAt)
	c.Thumbnail = cloneString(p.Thumbnail)
	return c
}

// LedgerView is the response shape of a ledger lookup.
type LedgerView struct {
	Book           string       `json:"book"`
	TotalPages     int          `json:"totalPages"`
	CompletedPages int          `json:"completedPages"`
	Pages          []PageRecord `json:"pages"`
}

// NewLedgerView builds the aggregate view for book.
func NewLedgerView(book string, l Ledger) LedgerView {
	pages := []PageRecord(l)
	if pages == nil {
		pages = []PageRecord{}
	}
	return LedgerView{
		Book:           book,
		TotalPages:     len(l),
		CompletedPages: l.Completed(),
		Pages:          pages,
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
