package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"launchgpt-go/internal/model"
	"launchgpt-go/pkg/payload"
	"launchgpt-go/pkg/tasks"
)

type memStore struct {
	objects map[uint]map[uint][]byte
	err     error
}

func (s *memStore) Put(_ context.Context, userID, chatID uint, data []byte) error {
	if s.err != nil {
		return s.err
	}
	if s.objects[userID] == nil {
		s.objects[userID] = map[uint][]byte{}
	}
	s.objects[userID][chatID] = data
	return nil
}

func (s *memStore) RemoveUser(_ context.Context, userID uint) error {
	delete(s.objects, userID)
	return nil
}

type memIndex struct {
	docs     map[uint]model.ChatDocument
	purgeErr error
}

func (x *memIndex) IndexChat(_ context.Context, doc model.ChatDocument) error {
	x.docs[doc.ChatID] = doc
	return nil
}

func (x *memIndex) DeleteUserChats(_ context.Context, userID uint) error {
	if x.purgeErr != nil {
		return x.purgeErr
	}
	for id, d := range x.docs {
		if d.UserID == userID {
			delete(x.docs, id)
		}
	}
	return nil
}

func newArchiver() (*Archiver, *memStore, *memIndex) {
	store := &memStore{objects: map[uint]map[uint][]byte{}}
	index := &memIndex{docs: map[uint]model.ChatDocument{}}
	return NewArchiver(store, index), store, index
}

func created(t *testing.T, userID, chatID uint, structured bool, response, raw string) tasks.ChatEvent {
	t.Helper()
	v := payload.String(raw)
	if structured {
		var err error
		v, err = payload.Parse([]byte(response))
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
	}
	return tasks.NewChatCreated(&model.ChatRecord{
		ID: chatID, UserID: userID, Prompt: "socks", Response: v,
		Structured: structured, RawOutput: raw, CreatedAt: time.Unix(1700000000, 0),
	})
}

func TestArchiveStructuredChat(t *testing.T) {
	a, store, index := newArchiver()
	ev := created(t, 1, 10, true, `{"summary":"Sell wool socks","roadmap":["prototype"]}`, "```json ...```")
	if err := a.Process(context.Background(), ev); err != nil {
		t.Fatalf("Process: %v", err)
	}

	var tr Transcript
	if err := json.Unmarshal(store.objects[1][10], &tr); err != nil {
		t.Fatalf("transcript is not JSON: %v", err)
	}
	if tr.ChatID != 10 || tr.RawOutput != "```json ...```" || !tr.Structured {
		t.Fatalf("unexpected transcript: %+v", tr)
	}
	doc := index.docs[10]
	if doc.UserID != 1 || !strings.Contains(doc.Content, "Sell wool socks") || !strings.Contains(doc.Content, "## roadmap") {
		t.Fatalf("unexpected indexed doc: %+v", doc)
	}
}

func TestArchiveUnstructuredIndexesRawText(t *testing.T) {
	a, _, index := newArchiver()
	if err := a.Process(context.Background(), created(t, 1, 11, false, "", "plain answer")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if index.docs[11].Content != "plain answer" {
		t.Fatalf("content = %q", index.docs[11].Content)
	}
}

func TestArchiveStoreFailureIsReturned(t *testing.T) {
	a, store, index := newArchiver()
	store.err = errors.New("minio down")
	if err := a.Process(context.Background(), created(t, 1, 12, false, "", "x")); err == nil {
		t.Fatalf("expected error so the event is retried")
	}
	if len(index.docs) != 0 {
		t.Fatalf("should not index when the transcript upload failed")
	}
}

func TestPurgeOnlyTouchesOwner(t *testing.T) {
	a, store, index := newArchiver()
	ctx := context.Background()
	for _, ev := range []tasks.ChatEvent{
		created(t, 1, 1, false, "", "a"),
		created(t, 2, 2, false, "", "b"),
	} {
		if err := a.Process(ctx, ev); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if err := a.Process(ctx, tasks.NewHistoryCleared(1, time.Now())); err != nil {
		t.Fatalf("purge: %v", err)
	}
	if _, ok := store.objects[1]; ok {
		t.Fatalf("user 1 transcripts should be removed")
	}
	if _, ok := index.docs[1]; ok {
		t.Fatalf("user 1 docs should be removed")
	}
	if _, ok := index.docs[2]; !ok || store.objects[2] == nil {
		t.Fatalf("user 2 archive must be untouched")
	}

	index.purgeErr = errors.New("es down")
	if err := a.Process(ctx, tasks.NewHistoryCleared(2, time.Now())); err == nil {
		t.Fatalf("index failure should be reported")
	}
}

func TestUnknownEventIgnored(t *testing.T) {
	a, _, _ := newArchiver()
	if err := a.Process(context.Background(), tasks.ChatEvent{Type: "something.else"}); err != nil {
		t.Fatalf("unknown events should be ignored, got %v", err)
	}
}
