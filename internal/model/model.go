package model

import "time"

// Event is one managed event in the event-management workspace.
type Event struct {
	ID          ID         `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Venue       string     `json:"venue,omitempty"`
	Status      string     `json:"status,omitempty"`
	Capacity    int        `json:"capacity,omitempty"`
	StartsAt    *time.Time `json:"startsAt,omitempty"`
	EndsAt      *time.Time `json:"endsAt,omitempty"`

	Tasks  []EventTask  `json:"tasks,omitempty"`
	Guests []Guest      `json:"guests,omitempty"`
	Budget []BudgetLine `json:"budget,omitempty"`
}

func (e Event) EntityID() ID { return e.ID }

type EventTask struct {
	ID    ID         `json:"id"`
	Title string     `json:"title"`
	Done  bool       `json:"done"`
	Due   *time.Time `json:"due,omitempty"`
}

func (t EventTask) EntityID() ID { return t.ID }

type Guest struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	RSVP  string `json:"rsvp,omitempty"` // pending|yes|no
}

func (g Guest) EntityID() ID { return g.ID }

// BudgetLine amounts are in minor currency units.
type BudgetLine struct {
	ID       ID     `json:"id"`
	Label    string `json:"label"`
	Planned  int64  `json:"planned"`
	Actual   int64  `json:"actual"`
	Currency string `json:"currency,omitempty"`
}

func (b BudgetLine) EntityID() ID { return b.ID }

// Account is a wallet account. Balance is in minor currency units.
type Account struct {
	ID        ID         `json:"id"`
	Label     string     `json:"label"`
	Currency  string     `json:"currency"`
	Balance   int64      `json:"balance"`
	Status    string     `json:"status,omitempty"` // active|closed
	Transfers []Transfer `json:"transfers,omitempty"`
}

func (a Account) EntityID() ID { return a.ID }

type Transfer struct {
	ID        ID         `json:"id"`
	FromID    ID         `json:"fromAccountId"`
	ToID      ID         `json:"toAccountId"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Memo      string     `json:"memo,omitempty"`
	Status    string     `json:"status,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

func (t Transfer) EntityID() ID { return t.ID }

const (
	SessionScheduled = "scheduled"
	SessionCompleted = "completed"
	SessionCancelled = "cancelled"
)

// Session is one mentoring session between the owner and a mentee.
type Session struct {
	ID          ID         `json:"id"`
	Topic       string     `json:"topic"`
	MenteeName  string     `json:"menteeName,omitempty"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	Minutes     int        `json:"durationMinutes"`
	Status      string     `json:"status"`
	Notes       string     `json:"notes,omitempty"`
	Price       int64      `json:"price,omitempty"`
}

func (s Session) EntityID() ID { return s.ID }
