package assessment

import (
	"bytes"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"auctionhouse/core/events"
)

const testNow int64 = 1_700_000_000

type mockState struct {
	projects      map[uint64]*Project
	submissions   map[uint64]*Submission
	projectSeq    uint64
	submissionSeq uint64
}

func newMockState() *mockState {
	return &mockState{
		projects:    make(map[uint64]*Project),
		submissions: make(map[uint64]*Submission),
	}
}

func (m *mockState) ProjectPut(p *Project) error {
	m.projects[p.ID] = p.Clone()
	return nil
}

func (m *mockState) ProjectGet(id uint64) (*Project, bool) {
	p, ok := m.projects[id]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

func (m *mockState) ProjectNextID() (uint64, error) {
	m.projectSeq++
	return m.projectSeq, nil
}

func (m *mockState) SubmissionPut(s *Submission) error {
	m.submissions[s.ID] = s.Clone()
	return nil
}

func (m *mockState) SubmissionGet(id uint64) (*Submission, bool) {
	s, ok := m.submissions[id]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}

func (m *mockState) SubmissionNextID() (uint64, error) {
	m.submissionSeq++
	return m.submissionSeq, nil
}

type capturingEmitter struct {
	types []string
}

func (c *capturingEmitter) Emit(evt events.Event) {
	c.types = append(c.types, evt.EventType())
}

func addr(fill byte) [20]byte {
	var out [20]byte
	copy(out[:], bytes.Repeat([]byte{fill}, 20))
	return out
}

func newTestEngine(state *mockState) *Engine {
	engine := NewEngine()
	engine.SetState(state)
	engine.SetNowFunc(func() int64 { return testNow })
	return engine
}

func TestCreateProject(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	owner := addr(0x01)
	verifier := addr(0x02)

	if _, err := engine.CreateProject(owner, verifier, ""); err == nil {
		t.Fatalf("expected empty title to fail")
	}
	if _, err := engine.CreateProject(owner, [20]byte{}, "rollout"); err == nil {
		t.Fatalf("expected empty verifier to fail")
	}
	if _, err := engine.CreateProject(owner, owner, "rollout"); err == nil {
		t.Fatalf("expected self-verification to fail")
	}
	project, err := engine.CreateProject(owner, verifier, "rollout")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if project.ID != 1 || project.Owner != owner || project.Verifier != verifier {
		t.Fatalf("unexpected project: %+v", project)
	}
	got, err := engine.GetProject(project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if got.Title != "rollout" || got.CreatedAt != testNow {
		t.Fatalf("unexpected stored project: %+v", got)
	}
}

func TestSubmitAndReview(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state)
	emitter := &capturingEmitter{}
	engine.SetEmitter(emitter)
	owner := addr(0x01)
	verifier := addr(0x02)
	worker := addr(0x03)

	project, err := engine.CreateProject(owner, verifier, "rollout")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	if _, err := engine.SubmitTask(99, worker, []byte("report")); err == nil {
		t.Fatalf("expected unknown project to fail")
	}
	if _, err := engine.SubmitTask(project.ID, worker, nil); err == nil {
		t.Fatalf("expected empty payload to fail")
	}
	if _, err := engine.SubmitTask(project.ID, verifier, []byte("report")); err == nil {
		t.Fatalf("expected verifier submission to fail")
	}

	payload := []byte("quarterly report")
	submission, err := engine.SubmitTask(project.ID, worker, payload)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submission.Status != SubmissionPending {
		t.Fatalf("status = %d, want pending", submission.Status)
	}
	if want := [32]byte(ethcrypto.Keccak256Hash(payload)); submission.Hash != want {
		t.Fatalf("hash mismatch")
	}

	if err := engine.Review(submission.ID, worker, true); err == nil {
		t.Fatalf("expected non-verifier review to fail")
	}
	if err := engine.Review(submission.ID, verifier, true); err != nil {
		t.Fatalf("review: %v", err)
	}
	if err := engine.Review(submission.ID, verifier, false); err == nil {
		t.Fatalf("expected second review to fail")
	}
	got, err := engine.GetSubmission(submission.ID)
	if err != nil {
		t.Fatalf("get submission: %v", err)
	}
	if got.Status != SubmissionAccepted {
		t.Fatalf("status = %d, want accepted", got.Status)
	}

	want := []string{
		EventTypeProjectCreated,
		EventTypeTaskSubmitted,
		EventTypeTaskReviewed,
	}
	if len(emitter.types) != len(want) {
		t.Fatalf("events = %v", emitter.types)
	}
	for i, eventType := range want {
		if emitter.types[i] != eventType {
			t.Fatalf("event %d = %s, want %s", i, emitter.types[i], eventType)
		}
	}
}
