// Package ragtest provides in-memory fakes for the pipeline's
// collaborators so component tests run without a database, an embedding
// service or a language model.
package ragtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/llm"

	"github.com/google/uuid"
)

// NewChunk builds a chunk row for tests.
func NewChunk(partitionId uuid.UUID, fileName string, page int, content string) *entity.DocumentChunk {
	return &entity.DocumentChunk{
		Id:          uuid.New(),
		DocumentId:  uuid.New(),
		PartitionId: partitionId,
		FileName:    fileName,
		PageNumber:  page,
		Content:     content,
		Language:    "en",
		CreatedAt:   time.Now(),
	}
}

// Scored wraps a chunk with a similarity score.
func Scored(similarity float64, chunk *entity.DocumentChunk) *contract.ScoredDocumentChunk {
	return &contract.ScoredDocumentChunk{Chunk: chunk, Similarity: similarity}
}

// FakeEmbedder implements embedding.EmbeddingProvider.
type FakeEmbedder struct {
	mu     sync.Mutex
	Vector []float32
	Err    error
	Calls  int
}

func (f *FakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	f.mu.Lock()
	f.Calls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	vec := f.Vector
	if vec == nil {
		vec = []float32{0.1, 0.2, 0.3}
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vec},
	}, nil
}

func (f *FakeEmbedder) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Calls
}

// FakeLLM implements llm.LLMProvider. Responses are served in order and
// the last one repeats; GenerateFunc, when set, overrides the queue.
// MaxInFlight records the concurrency high-water mark.
type FakeLLM struct {
	mu           sync.Mutex
	Responses    []string
	Err          error
	Prompts      []string
	Delay        time.Duration
	GenerateFunc func(prompt string) (string, error)

	inFlight    int
	MaxInFlight int
}

func (f *FakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	prompt := ""
	if len(history) > 0 {
		prompt = history[len(history)-1].Content
	}
	return f.Generate(ctx, prompt, options...)
}

func (f *FakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	f.enter(prompt)
	defer f.leave()

	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if f.GenerateFunc != nil {
		return f.GenerateFunc(prompt)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	if len(f.Responses) == 0 {
		return "ok", nil
	}
	resp := f.Responses[0]
	if len(f.Responses) > 1 {
		f.Responses = f.Responses[1:]
	}
	return resp, nil
}

func (f *FakeLLM) enter(prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	f.inFlight++
	if f.inFlight > f.MaxInFlight {
		f.MaxInFlight = f.inFlight
	}
}

func (f *FakeLLM) leave() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *FakeLLM) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Prompts)
}

// FakeChunkRepo implements contract.DocumentChunkRepository over slices.
type FakeChunkRepo struct {
	mu          sync.Mutex
	Chunks      []*entity.DocumentChunk
	Scored      []*contract.ScoredDocumentChunk
	SearchErr   error
	SearchCalls int
}

func (r *FakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.DocumentChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Chunks = append(r.Chunks, chunks...)
	return nil
}

func (r *FakeChunkRepo) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.Chunks[:0]
	for _, c := range r.Chunks {
		if c.DocumentId != documentId {
			kept = append(kept, c)
		}
	}
	r.Chunks = kept
	return nil
}

func (r *FakeChunkRepo) DeleteByPartitionId(ctx context.Context, partitionId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.Chunks[:0]
	for _, c := range r.Chunks {
		if c.PartitionId != partitionId {
			kept = append(kept, c)
		}
	}
	r.Chunks = kept
	return nil
}

func (r *FakeChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.DocumentChunk, len(r.Chunks))
	copy(out, r.Chunks)
	return out, nil
}

func (r *FakeChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.Chunks)), nil
}

func (r *FakeChunkRepo) CountByPartition(ctx context.Context, partitionId uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.Chunks {
		if c.PartitionId == partitionId {
			n++
		}
	}
	return n, nil
}

func (r *FakeChunkRepo) GetPages(ctx context.Context, documentId uuid.UUID) ([]*entity.DocumentChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.DocumentChunk
	for _, c := range r.Chunks {
		if c.DocumentId == documentId {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	return out, nil
}

func (r *FakeChunkRepo) GetAllPagesInPartition(ctx context.Context, partitionId uuid.UUID) ([]*entity.DocumentChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.DocumentChunk
	for _, c := range r.Chunks {
		if c.PartitionId == partitionId {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FileName != out[j].FileName {
			return out[i].FileName < out[j].FileName
		}
		return out[i].PageNumber < out[j].PageNumber
	})
	return out, nil
}

func (r *FakeChunkRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, partitionId uuid.UUID, threshold float64) ([]*contract.ScoredDocumentChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SearchCalls++
	if r.SearchErr != nil {
		return nil, r.SearchErr
	}
	var out []*contract.ScoredDocumentChunk
	for _, s := range r.Scored {
		if s.Similarity >= threshold {
			out = append(out, s)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *FakeChunkRepo) SearchCallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.SearchCalls
}

// FakeDocumentRepo implements contract.DocumentRepository.
type FakeDocumentRepo struct {
	mu        sync.Mutex
	Documents []*entity.Document
	SumErr    error
}

func (r *FakeDocumentRepo) Create(ctx context.Context, document *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Documents = append(r.Documents, document)
	return nil
}

func (r *FakeDocumentRepo) Update(ctx context.Context, document *entity.Document) error {
	return nil
}

func (r *FakeDocumentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.DocumentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.Documents {
		if d.Id == id {
			d.Status = status
		}
	}
	return nil
}

func (r *FakeDocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.Documents[:0]
	for _, d := range r.Documents {
		if d.Id != id {
			kept = append(kept, d)
		}
	}
	r.Documents = kept
	return nil
}

func (r *FakeDocumentRepo) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.Documents[:0]
	for _, d := range r.Documents {
		if d.ChatSessionId != sessionId {
			kept = append(kept, d)
		}
	}
	r.Documents = kept
	return nil
}

func (r *FakeDocumentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Documents) == 0 {
		return nil, nil
	}
	return r.Documents[0], nil
}

func (r *FakeDocumentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Document, len(r.Documents))
	copy(out, r.Documents)
	return out, nil
}

func (r *FakeDocumentRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.Documents)), nil
}

// StatusOf reads a document's status under the repo lock; consumer tests
// poll it while the worker goroutine is still writing.
func (r *FakeDocumentRepo) StatusOf(id uuid.UUID) (entity.DocumentStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.Documents {
		if d.Id == id {
			return d.Status, true
		}
	}
	return "", false
}

func (r *FakeDocumentRepo) SumPageCount(ctx context.Context, sessionId uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SumErr != nil {
		return 0, r.SumErr
	}
	var sum int64
	for _, d := range r.Documents {
		if d.ChatSessionId == sessionId && d.Status == entity.DocumentStatusReady {
			sum += int64(d.PageCount)
		}
	}
	return sum, nil
}

// FakeMessageRepo implements contract.ChatMessageRepository and assigns
// Seq the way the database would.
type FakeMessageRepo struct {
	mu        sync.Mutex
	Messages  []*entity.ChatMessage
	CreateErr error
	nextSeq   int64
}

func (r *FakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return r.CreateErr
	}
	r.nextSeq++
	message.Seq = r.nextSeq
	cp := *message
	r.Messages = append(r.Messages, &cp)
	return nil
}

func (r *FakeMessageRepo) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.Messages[:0]
	for _, m := range r.Messages {
		if m.ChatSessionId != sessionId {
			kept = append(kept, m)
		}
	}
	r.Messages = kept
	return nil
}

func (r *FakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return nil, nil
	}
	return r.Messages[0], nil
}

// FindAll understands the specs the history loader sends: session filter,
// seq ordering and pagination. Anything else is ignored.
func (r *FakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		sessionFilter *uuid.UUID
		desc          bool
		limit         int
	)
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByChatSessionID:
			id := s.ChatSessionID
			sessionFilter = &id
		case specification.OrderBy:
			desc = s.Desc
		case specification.Pagination:
			limit = s.Limit
		}
	}

	out := make([]*entity.ChatMessage, 0, len(r.Messages))
	for _, m := range r.Messages {
		if sessionFilter != nil && m.ChatSessionId != *sessionFilter {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].Seq > out[j].Seq
		}
		return out[i].Seq < out[j].Seq
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *FakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.Messages)), nil
}

// FakeSessionRepo implements contract.ChatSessionRepository.
type FakeSessionRepo struct {
	mu       sync.Mutex
	Sessions []*entity.ChatSession
}

func (r *FakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sessions = append(r.Sessions, session)
	return nil
}

func (r *FakeSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error {
	return nil
}

func (r *FakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.Sessions[:0]
	for _, s := range r.Sessions {
		if s.Id != id {
			kept = append(kept, s)
		}
	}
	r.Sessions = kept
	return nil
}

func (r *FakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Sessions) == 0 {
		return nil, nil
	}
	return r.Sessions[0], nil
}

func (r *FakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.ChatSession, len(r.Sessions))
	copy(out, r.Sessions)
	return out, nil
}

func (r *FakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.Sessions)), nil
}

// FakeCache is an atomic get-or-insert map satisfying partition.Cache.
type FakeCache struct {
	mu   sync.Mutex
	data map[string]uuid.UUID
}

func NewFakeCache() *FakeCache {
	return &FakeCache{data: make(map[string]uuid.UUID)}
}

func (c *FakeCache) Get(sessionID string) (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.data[sessionID]
	return id, ok
}

func (c *FakeCache) Add(sessionID string, partitionID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.data[sessionID]; exists {
		return false
	}
	c.data[sessionID] = partitionID
	return true
}

func (c *FakeCache) Delete(sessionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, sessionID)
}

// FakePartitionRepo implements contract.PartitionRepository with the same
// first-insert-wins behavior as the database constraint.
type FakePartitionRepo struct {
	mu        sync.Mutex
	Rows      map[uuid.UUID]*entity.Partition
	Creates   int
	CreateErr error
}

func NewFakePartitionRepo() *FakePartitionRepo {
	return &FakePartitionRepo{Rows: make(map[uuid.UUID]*entity.Partition)}
}

func (r *FakePartitionRepo) CreateOrGet(ctx context.Context, partition *entity.Partition) (*entity.Partition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.CreateErr != nil {
		return nil, r.CreateErr
	}
	if existing, ok := r.Rows[partition.ChatSessionId]; ok {
		return existing, nil
	}
	r.Creates++
	cp := *partition
	r.Rows[partition.ChatSessionId] = &cp
	return &cp, nil
}

func (r *FakePartitionRepo) FindByChatSessionId(ctx context.Context, sessionId uuid.UUID) (*entity.Partition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Rows[sessionId], nil
}

func (r *FakePartitionRepo) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.Rows, sessionId)
	return nil
}

// FakeUserRepo satisfies contract.UserRepository for wiring; chat
// pipeline tests never exercise it.
type FakeUserRepo struct{}

func (r *FakeUserRepo) Create(ctx context.Context, user *entity.User) error { return nil }
func (r *FakeUserRepo) Update(ctx context.Context, user *entity.User) error { return nil }
func (r *FakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error      { return nil }
func (r *FakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	return nil, nil
}
func (r *FakeUserRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	return nil, nil
}
func (r *FakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}
func (r *FakeUserRepo) ActivateUser(ctx context.Context, userId uuid.UUID) error { return nil }
func (r *FakeUserRepo) CreateEmailVerificationToken(ctx context.Context, token *entity.EmailVerificationToken) error {
	return nil
}
func (r *FakeUserRepo) FindEmailVerificationToken(ctx context.Context, specs ...specification.Specification) (*entity.EmailVerificationToken, error) {
	return nil, nil
}
func (r *FakeUserRepo) DeleteEmailVerificationToken(ctx context.Context, id uuid.UUID) error {
	return nil
}
func (r *FakeUserRepo) CreateProvider(ctx context.Context, provider *entity.UserProvider) error {
	return nil
}
func (r *FakeUserRepo) FindProvider(ctx context.Context, providerName, providerUserId string) (*entity.UserProvider, error) {
	return nil, nil
}

// FakeUnitOfWork implements unitofwork.UnitOfWork over the fakes above.
type FakeUnitOfWork struct {
	Users      *FakeUserRepo
	Sessions   *FakeSessionRepo
	Messages   *FakeMessageRepo
	Documents  *FakeDocumentRepo
	Chunks     *FakeChunkRepo
	Partitions *FakePartitionRepo

	mu         sync.Mutex
	Begun      int
	Committed  int
	RolledBack int
	BeginErr   error
}

func NewFakeUnitOfWork() *FakeUnitOfWork {
	return &FakeUnitOfWork{
		Users:      &FakeUserRepo{},
		Sessions:   &FakeSessionRepo{},
		Messages:   &FakeMessageRepo{},
		Documents:  &FakeDocumentRepo{},
		Chunks:     &FakeChunkRepo{},
		Partitions: NewFakePartitionRepo(),
	}
}

func (u *FakeUnitOfWork) Begin(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.BeginErr != nil {
		return u.BeginErr
	}
	u.Begun++
	return nil
}

func (u *FakeUnitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Committed++
	return nil
}

func (u *FakeUnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.RolledBack++
	return nil
}

func (u *FakeUnitOfWork) UserRepository() contract.UserRepository               { return u.Users }
func (u *FakeUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository { return u.Sessions }
func (u *FakeUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository { return u.Messages }
func (u *FakeUnitOfWork) DocumentRepository() contract.DocumentRepository       { return u.Documents }
func (u *FakeUnitOfWork) DocumentChunkRepository() contract.DocumentChunkRepository {
	return u.Chunks
}
func (u *FakeUnitOfWork) PartitionRepository() contract.PartitionRepository { return u.Partitions }

// FakeFactory implements unitofwork.RepositoryFactory, handing out the
// same unit of work every time.
type FakeFactory struct {
	UoW *FakeUnitOfWork
}

func NewFakeFactory() *FakeFactory {
	return &FakeFactory{UoW: NewFakeUnitOfWork()}
}

func (f *FakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.UoW
}
