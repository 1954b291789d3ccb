package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"gigdesk/internal/model"
)

// Fetcher loads the full snapshot for owner. It must honor ctx cancellation.
type Fetcher[E Entity] func(ctx context.Context, owner string, params url.Values) (*Snapshot[E], error)

type Config struct {
	// Name labels log lines (e.g. "events").
	Name string
	// Owner is the user id every request is scoped to.
	Owner  string
	Logger *slog.Logger

	// OnRefresh runs once after every successful mutation. Nil means the
	// controller reloads its own snapshot with the last params.
	OnRefresh func(ctx context.Context) error

	// AutoSelect picks the first entity when the selection is cleared by a
	// snapshot change. Without it the selection is simply cleared.
	AutoSelect bool
}

// Controller mediates between a UI and the service module for one workspace.
// It is safe for concurrent use; service calls never run under the lock.
type Controller[E Entity] struct {
	name       string
	owner      string
	fetch      Fetcher[E]
	log        *slog.Logger
	onRefresh  func(ctx context.Context) error
	autoSelect bool

	inflight *inflight

	mu          sync.Mutex
	snap        *Snapshot[E]
	params      url.Values
	loading     bool
	errMsg      string
	feedback    *Feedback
	feedbackSeq uint64
	wizard      Wizard[E]
	confirm     confirmState
	selected    model.ID
	loadGen     uint64
	cancelLoad  context.CancelFunc
}

func New[E Entity](fetch Fetcher[E], cfg Config) *Controller[E] {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = "workspace"
	}
	return &Controller[E]{
		name:       name,
		owner:      strings.TrimSpace(cfg.Owner),
		fetch:      fetch,
		log:        log.With("workspace", name),
		onRefresh:  cfg.OnRefresh,
		autoSelect: cfg.AutoSelect,
		inflight:   newInflight(),
		wizard:     closedWizard[E](),
	}
}

func (c *Controller[E]) Name() string  { return c.name }
func (c *Controller[E]) Owner() string { return c.owner }

// State is a point-in-time copy of everything a view renders.
type State[E Entity] struct {
	Snapshot   *Snapshot[E]
	Loading    bool
	Busy       bool
	Pending    []Pending
	Error      string
	Feedback   *Feedback
	Wizard     Wizard[E]
	Confirm    Confirm
	SelectedID model.ID
	Selected   *E
}

func (c *Controller[E]) State() State[E] {
	pending := c.inflight.list()

	c.mu.Lock()
	defer c.mu.Unlock()

	st := State[E]{
		Snapshot:   c.snap.clone(),
		Loading:    c.loading,
		Busy:       len(pending) > 0,
		Pending:    pending,
		Error:      c.errMsg,
		Wizard:     c.wizard,
		Confirm:    c.confirm.view(),
		SelectedID: c.selected,
	}
	if c.feedback != nil {
		fb := *c.feedback
		st.Feedback = &fb
	}
	if sel, ok := c.selectedLocked(); ok {
		st.Selected = &sel
	}
	return st
}

func (c *Controller[E]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Controller[E]) Busy() bool { return c.inflight.busy() }

func (c *Controller[E]) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Entities returns a copy of the current collection (nil before the first load).
func (c *Controller[E]) Entities() []E {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return nil
	}
	return append([]E(nil), c.snap.Entities...)
}

func (c *Controller[E]) Find(id model.ID) (E, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		var zero E
		return zero, false
	}
	return Find(c.snap.Entities, id)
}

// Can reports whether the loaded snapshot grants action.
func (c *Controller[E]) Can(action string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil {
		return true
	}
	return c.snap.Permissions.Allows(action)
}

// Require fails with ErrAccessDenied, recorded as UI state, when action is not
// granted. It never touches the network.
func (c *Controller[E]) Require(action string) error {
	if c.Can(action) {
		return nil
	}
	return c.Reject(ErrAccessDenied)
}

// Reject records err as the current error without running anything. Domain
// controllers use it for precondition failures detected before a request.
func (c *Controller[E]) Reject(err error) error {
	if err == nil {
		return nil
	}
	c.mu.Lock()
	c.setErrorLocked(err)
	c.mu.Unlock()
	return err
}

// Load fetches the full snapshot, replacing the local copy on success. On
// failure the previous snapshot stays in place and Error is set. Starting a
// load cancels any load still in flight; a superseded load never writes state.
func (c *Controller[E]) Load(ctx context.Context, params url.Values) error {
	if c.owner == "" {
		c.mu.Lock()
		c.loading = false
		c.snap = nil
		c.errMsg = Message(ErrOwnerRequired)
		c.mu.Unlock()
		return ErrOwnerRequired
	}

	ctx, cancel := context.WithCancel(ctx)

	c.mu.Lock()
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	c.loadGen++
	gen := c.loadGen
	c.cancelLoad = cancel
	c.loading = true
	c.params = cloneValues(params)
	c.mu.Unlock()

	snap, err := c.fetch(ctx, c.owner, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer cancel()

	if gen != c.loadGen {
		c.log.Debug("load superseded", "gen", gen)
		return ErrSuperseded
	}
	c.cancelLoad = nil
	c.loading = false

	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			// Caller went away; keep whatever was on screen.
			return err
		}
		c.errMsg = Message(err)
		c.log.Warn("load failed", "err", err)
		return err
	}
	if snap == nil {
		snap = &Snapshot[E]{}
	}
	if snap.Entities == nil {
		snap.Entities = []E{}
	}
	c.snap = snap
	c.errMsg = ""
	c.reconcileSelectionLocked()
	c.log.Debug("load ok", "entities", len(snap.Entities))
	return nil
}

// Refresh reloads with the params of the last Load.
func (c *Controller[E]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	params := cloneValues(c.params)
	c.mu.Unlock()
	return c.Load(ctx, params)
}

// Close cancels an in-flight load and discards its result.
func (c *Controller[E]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelLoad != nil {
		c.cancelLoad()
		c.cancelLoad = nil
	}
	c.loadGen++
	c.loading = false
}

type MutateOptions struct {
	// Label names the mutation in Pending and in logs.
	Label string
	// SuccessMessage becomes the success feedback. Empty leaves feedback alone.
	SuccessMessage string
}

// Mutate runs op while the controller is busy. On success the result is merged
// into the snapshot, success feedback is set and the refresh hook runs exactly
// once. On failure the snapshot is left untouched, the normalized message is
// stored as Error and error feedback, and the error is returned so the caller
// can decide whether to keep a form open.
func (c *Controller[E]) Mutate(ctx context.Context, op Op[E], opts MutateOptions) error {
	res, err := func() (Result[E], error) {
		id := c.inflight.begin(opts.Label)
		defer c.inflight.end(id)
		return op(ctx)
	}()

	if err != nil {
		c.mu.Lock()
		c.setErrorLocked(err)
		c.mu.Unlock()
		c.log.Warn("mutation failed", "op", opts.Label, "err", err)
		return err
	}

	c.mu.Lock()
	if c.snap == nil {
		c.snap = &Snapshot[E]{Entities: []E{}}
	}
	next := *c.snap
	next.Entities = res.apply(c.snap.Entities)
	c.snap = &next
	c.errMsg = ""
	if opts.SuccessMessage != "" {
		c.setFeedbackLocked(ToneSuccess, opts.SuccessMessage)
	}
	c.reconcileSelectionLocked()
	c.mu.Unlock()

	c.log.Debug("mutation ok", "op", opts.Label, "result", res.Kind.String(), "id", res.ID.String())
	c.refresh(ctx)
	return nil
}

// UpdateSettings is Mutate for the snapshot's settings block: op returns the
// complete new settings, which replace the local copy.
func (c *Controller[E]) UpdateSettings(ctx context.Context, op func(ctx context.Context) (map[string]any, error), opts MutateOptions) error {
	settings, err := func() (map[string]any, error) {
		id := c.inflight.begin(opts.Label)
		defer c.inflight.end(id)
		return op(ctx)
	}()

	c.mu.Lock()
	if err != nil {
		c.setErrorLocked(err)
		c.mu.Unlock()
		c.log.Warn("settings update failed", "err", err)
		return err
	}
	if c.snap == nil {
		c.snap = &Snapshot[E]{Entities: []E{}}
	}
	next := *c.snap
	next.Settings = cloneMap(settings)
	c.snap = &next
	c.errMsg = ""
	if opts.SuccessMessage != "" {
		c.setFeedbackLocked(ToneSuccess, opts.SuccessMessage)
	}
	c.mu.Unlock()

	c.refresh(ctx)
	return nil
}

// Settings returns a copy of the snapshot's settings block, never nil.
func (c *Controller[E]) Settings() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil || c.snap.Settings == nil {
		return map[string]any{}
	}
	return cloneMap(c.snap.Settings)
}

// PutSetting sets one key of the settings block and saves the whole block with
// save. An empty value removes the key.
func (c *Controller[E]) PutSetting(ctx context.Context, key, value string, save func(ctx context.Context, owner string, settings map[string]any) (map[string]any, error)) error {
	if err := c.Require(PermManage); err != nil {
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return c.Reject(Invalid("key", "is required"))
	}
	next := c.Settings()
	if v := strings.TrimSpace(value); v == "" {
		delete(next, key)
	} else {
		next[key] = v
	}
	return c.UpdateSettings(ctx, func(ctx context.Context) (map[string]any, error) {
		return save(ctx, c.Owner(), next)
	}, MutateOptions{Label: "save settings", SuccessMessage: "Settings saved"})
}

func (c *Controller[E]) refresh(ctx context.Context) {
	hook := c.onRefresh
	if hook == nil {
		hook = c.Refresh
	}
	if err := hook(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
		c.log.Warn("refresh after mutation failed", "err", err)
	}
}

func (c *Controller[E]) setErrorLocked(err error) {
	msg := Message(err)
	c.errMsg = msg
	c.setFeedbackLocked(ToneError, msg)
}

func (c *Controller[E]) setFeedbackLocked(tone Tone, msg string) {
	c.feedbackSeq++
	c.feedback = &Feedback{Seq: c.feedbackSeq, Tone: tone, Message: msg}
}

// DismissFeedback clears the banner if it is still the one identified by seq.
// Zero clears unconditionally.
func (c *Controller[E]) DismissFeedback(seq uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.feedback == nil {
		return
	}
	if seq != 0 && c.feedback.Seq != seq {
		return
	}
	c.feedback = nil
}

// ClearError drops the error string (the banner is dismissed separately).
func (c *Controller[E]) ClearError() {
	c.mu.Lock()
	c.errMsg = ""
	c.mu.Unlock()
}

func (c *Controller[E]) OpenCreateWizard(initial *E) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wizard = Wizard[E]{Open: true, Mode: WizardCreate, Initial: initial}
}

// OpenEditWizard is a no-op without a target entity.
func (c *Controller[E]) OpenEditWizard(target *E) {
	if target == nil {
		return
	}
	cp := *target
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wizard = Wizard[E]{Open: true, Mode: WizardEdit, Initial: &cp}
}

func (c *Controller[E]) CloseWizard() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wizard = closedWizard[E]()
}

func (c *Controller[E]) Wizard() Wizard[E] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wizard
}

// RequestConfirm opens the confirmation dialog with fn bound to it.
func (c *Controller[E]) RequestConfirm(title, message string, fn ConfirmFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirm = confirmState{
		seq:       c.confirm.seq + 1,
		open:      true,
		title:     title,
		message:   message,
		onConfirm: fn,
	}
}

// RequestDelete asks for confirmation before running del against target.
func (c *Controller[E]) RequestDelete(target E, label string, del func(ctx context.Context, e E) error) {
	if strings.TrimSpace(label) == "" {
		label = target.EntityID().String()
	}
	c.RequestConfirm("Delete", fmt.Sprintf("Delete %s? This cannot be undone.", label), func(ctx context.Context) error {
		return del(ctx, target)
	})
}

// ConfirmAction runs the bound action and closes the dialog unless the action
// failed. Without a bound action it only closes.
func (c *Controller[E]) ConfirmAction(ctx context.Context) error {
	c.mu.Lock()
	seq := c.confirm.seq
	fn := c.confirm.onConfirm
	c.mu.Unlock()

	var err error
	if fn != nil {
		err = fn(ctx)
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.confirm.seq == seq {
		c.confirm = confirmState{seq: seq}
	}
	c.mu.Unlock()
	return nil
}

func (c *Controller[E]) CloseConfirm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.confirm = confirmState{seq: c.confirm.seq}
}

func (c *Controller[E]) Confirm() Confirm {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirm.view()
}

// Select makes id the active entity. Ids not in the collection clear the
// selection and report false.
func (c *Controller[E]) Select(id model.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap == nil || !contains(c.snap.Entities, id) {
		c.selected = ""
		return false
	}
	c.selected = id
	return true
}

func (c *Controller[E]) Selected() (E, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedLocked()
}

func (c *Controller[E]) selectedLocked() (E, bool) {
	var zero E
	if c.selected == "" || c.snap == nil {
		return zero, false
	}
	return Find(c.snap.Entities, c.selected)
}

func (c *Controller[E]) reconcileSelectionLocked() {
	if c.snap == nil {
		c.selected = ""
		return
	}
	if c.selected != "" && contains(c.snap.Entities, c.selected) {
		return
	}
	c.selected = ""
	if c.autoSelect && len(c.snap.Entities) > 0 {
		c.selected = c.snap.Entities[0].EntityID()
	}
}

func cloneValues(v url.Values) url.Values {
	if v == nil {
		return nil
	}
	out := make(url.Values, len(v))
	for k, xs := range v {
		out[k] = append([]string(nil), xs...)
	}
	return out
}
