package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"launchgpt-go/internal/model"
	"launchgpt-go/pkg/llm"
	"launchgpt-go/pkg/tasks"
)

type memUserRepo struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[uint]*model.User{}}
}

func (r *memUserRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextID++
	u.ID = r.nextID
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, id uint) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type memChatRepo struct {
	mu      sync.Mutex
	nextID  uint
	records []model.ChatRecord
	failOn  string
}

func (r *memChatRepo) Create(_ context.Context, rec *model.ChatRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == "create" {
		return errors.New("db down")
	}
	r.nextID++
	rec.ID = r.nextID
	r.records = append(r.records, *rec)
	return nil
}

func (r *memChatRepo) ListByUser(_ context.Context, userID uint, limit int) ([]model.ChatRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ChatRecord, 0)
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memChatRepo) FindByID(_ context.Context, userID, chatID uint) (*model.ChatRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == chatID && rec.UserID == userID {
			cp := rec
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memChatRepo) DeleteByUser(_ context.Context, userID uint) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	var n int64
	for _, rec := range r.records {
		if rec.UserID == userID {
			n++
			continue
		}
		kept = append(kept, rec)
	}
	r.records = kept
	return n, nil
}

type stubLLM struct {
	reply string
	err   error
	calls int
	last  []llm.Message
}

func (s *stubLLM) Complete(_ context.Context, messages []llm.Message) (string, error) {
	s.calls++
	s.last = messages
	return s.reply, s.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []tasks.ChatEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e tasks.ChatEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

type memCache struct {
	gens        map[uint]int64
	data        map[string][]model.ChatRecord
	getErr      error
	invalidated []uint
}

func newMemCache() *memCache {
	return &memCache{gens: map[uint]int64{}, data: map[string][]model.ChatRecord{}}
}

func cacheKey(userID uint, gen int64) string { return fmt.Sprintf("%d:%d", userID, gen) }

func (c *memCache) Generation(_ context.Context, userID uint) (int64, error) {
	return c.gens[userID], nil
}

func (c *memCache) Get(_ context.Context, userID uint, gen int64) ([]model.ChatRecord, bool, error) {
	if c.getErr != nil {
		return nil, false, c.getErr
	}
	recs, ok := c.data[cacheKey(userID, gen)]
	return recs, ok, nil
}

func (c *memCache) Set(_ context.Context, userID uint, gen int64, recs []model.ChatRecord) error {
	c.data[cacheKey(userID, gen)] = recs
	return nil
}

func (c *memCache) Invalidate(_ context.Context, userID uint) error {
	c.gens[userID]++
	c.invalidated = append(c.invalidated, userID)
	return nil
}

// cached 返回用户当前代数下的缓存内容。
func (c *memCache) cached(userID uint) ([]model.ChatRecord, bool) {
	recs, ok := c.data[cacheKey(userID, c.gens[userID])]
	return recs, ok
}

// racingChatRepo 在 ListByUser 读完数据、返回之前执行一次 onList，模拟并发写入。
type racingChatRepo struct {
	*memChatRepo
	onList func()
}

func (r *racingChatRepo) ListByUser(ctx context.Context, userID uint, limit int) ([]model.ChatRecord, error) {
	recs, err := r.memChatRepo.ListByUser(ctx, userID, limit)
	if f := r.onList; f != nil {
		r.onList = nil
		f()
	}
	return recs, err
}

type stubLinker struct{}

func (stubLinker) PresignedURL(_ context.Context, userID, chatID uint, _ time.Duration) (string, error) {
	return fmt.Sprintf("https://minio.local/transcripts/%d/%d.json", userID, chatID), nil
}
