package assessment

import (
	"errors"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"auctionhouse/core/events"
	"auctionhouse/core/types"
	"auctionhouse/native/common"
)

const moduleName = "assessment"

var (
	errNilState           = errors.New("assessment engine: state not configured")
	errProjectNotFound    = errors.New("assessment engine: project not found")
	errSubmissionNotFound = errors.New("assessment engine: submission not found")
)

// SubmissionStatus tracks the verifier's decision on a submitted task.
type SubmissionStatus uint8

const (
	SubmissionPending SubmissionStatus = iota
	SubmissionAccepted
	SubmissionRejected
)

// Valid reports whether the status value is within the supported range.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionPending, SubmissionAccepted, SubmissionRejected:
		return true
	default:
		return false
	}
}

// Project is a flat registry entry pairing an owner with a verifier.
type Project struct {
	ID        uint64
	Title     string
	Owner     [20]byte
	Verifier  [20]byte
	CreatedAt int64
}

// Clone returns a copy of the project.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Submission records the keccak hash of a submitted task payload. Only the
// hash is retained; the payload itself never enters the registry.
type Submission struct {
	ID          uint64
	ProjectID   uint64
	Worker      [20]byte
	Hash        [32]byte
	SubmittedAt int64
	Status      SubmissionStatus
}

// Clone returns a copy of the submission.
func (s *Submission) Clone() *Submission {
	if s == nil {
		return nil
	}
	clone := *s
	return &clone
}

type registryState interface {
	ProjectPut(*Project) error
	ProjectGet(id uint64) (*Project, bool)
	ProjectNextID() (uint64, error)
	SubmissionPut(*Submission) error
	SubmissionGet(id uint64) (*Submission, bool)
	SubmissionNextID() (uint64, error)
}

type registryEvent struct {
	evt *types.Event
}

func (e registryEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e registryEvent) Event() *types.Event { return e.evt }

// Engine drives the project/task assessment registry. It holds no funds and
// performs no multi-party negotiation; every mutation is a single
// owner/worker/verifier action.
type Engine struct {
	state   registryState
	emitter events.Emitter
	nowFn   func() int64
	pauses  common.PauseView
}

// NewEngine creates an assessment engine with a no-op emitter.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state registryState) { e.state = state }

// SetPauses configures the module pause view.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetNowFunc overrides the time source, primarily used in tests.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetEmitter configures the event emitter. Passing nil resets it to no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(registryEvent{evt: evt})
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

// CreateProject registers a project with a designated verifier.
func (e *Engine) CreateProject(caller, verifier [20]byte, title string) (*Project, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if title == "" {
		return nil, fmt.Errorf("assessment: title must not be empty")
	}
	if verifier == ([20]byte{}) {
		return nil, fmt.Errorf("assessment: verifier must not be empty")
	}
	if verifier == caller {
		return nil, fmt.Errorf("assessment: verifier must not be the owner")
	}
	id, err := e.state.ProjectNextID()
	if err != nil {
		return nil, err
	}
	project := &Project{ID: id, Title: title, Owner: caller, Verifier: verifier, CreatedAt: e.now()}
	if err := e.state.ProjectPut(project); err != nil {
		return nil, err
	}
	e.emit(NewProjectCreatedEvent(project))
	return project.Clone(), nil
}

// SubmitTask stores the keccak hash of the task payload under the project.
func (e *Engine) SubmitTask(projectID uint64, caller [20]byte, payload []byte) (*Submission, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	project, ok := e.state.ProjectGet(projectID)
	if !ok {
		return nil, errProjectNotFound
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("assessment: payload must not be empty")
	}
	if caller == project.Verifier {
		return nil, fmt.Errorf("assessment: verifier cannot submit tasks")
	}
	id, err := e.state.SubmissionNextID()
	if err != nil {
		return nil, err
	}
	submission := &Submission{
		ID:          id,
		ProjectID:   project.ID,
		Worker:      caller,
		Hash:        ethcrypto.Keccak256Hash(payload),
		SubmittedAt: e.now(),
		Status:      SubmissionPending,
	}
	if err := e.state.SubmissionPut(submission); err != nil {
		return nil, err
	}
	e.emit(NewTaskSubmittedEvent(submission))
	return submission.Clone(), nil
}

// Review records the verifier's decision on a pending submission.
func (e *Engine) Review(submissionID uint64, caller [20]byte, accept bool) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := common.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	submission, ok := e.state.SubmissionGet(submissionID)
	if !ok {
		return errSubmissionNotFound
	}
	project, ok := e.state.ProjectGet(submission.ProjectID)
	if !ok {
		return errProjectNotFound
	}
	if caller != project.Verifier {
		return fmt.Errorf("assessment: only the project verifier may review")
	}
	if submission.Status != SubmissionPending {
		return fmt.Errorf("assessment: submission already reviewed")
	}
	if accept {
		submission.Status = SubmissionAccepted
	} else {
		submission.Status = SubmissionRejected
	}
	if err := e.state.SubmissionPut(submission); err != nil {
		return err
	}
	e.emit(NewTaskReviewedEvent(submission))
	return nil
}

// GetProject returns a copy of the stored project.
func (e *Engine) GetProject(id uint64) (*Project, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	project, ok := e.state.ProjectGet(id)
	if !ok {
		return nil, errProjectNotFound
	}
	return project.Clone(), nil
}

// GetSubmission returns a copy of the stored submission.
func (e *Engine) GetSubmission(id uint64) (*Submission, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	submission, ok := e.state.SubmissionGet(id)
	if !ok {
		return nil, errSubmissionNotFound
	}
	return submission.Clone(), nil
}
