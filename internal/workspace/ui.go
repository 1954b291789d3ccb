package workspace

import "context"

type WizardMode string

const (
	WizardCreate WizardMode = "create"
	WizardEdit   WizardMode = "edit"
)

// Wizard is the create/edit form state: closed, or open in one mode.
type Wizard[E Entity] struct {
	Open    bool
	Mode    WizardMode
	Initial *E
}

func closedWizard[E Entity]() Wizard[E] {
	return Wizard[E]{Mode: WizardCreate}
}

// ConfirmFunc is the action bound to a confirmation dialog. A non-nil error
// keeps the dialog open.
type ConfirmFunc func(ctx context.Context) error

// Confirm is the read-only view of the confirmation dialog.
type Confirm struct {
	Open      bool
	Title     string
	Message   string
	HasAction bool
}

type confirmState struct {
	seq       uint64
	open      bool
	title     string
	message   string
	onConfirm ConfirmFunc
}

func (c confirmState) view() Confirm {
	return Confirm{Open: c.open, Title: c.title, Message: c.message, HasAction: c.onConfirm != nil}
}

type Tone string

const (
	ToneSuccess Tone = "success"
	ToneError   Tone = "error"
)

// Feedback is the transient banner shown after a mutation. Seq increases on
// every new banner so timers can dismiss only the banner they were armed for.
type Feedback struct {
	Seq     uint64
	Tone    Tone
	Message string
}
