package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/yaoshiu/pretty-der6y/pkg/types"
)

// --- Mock Database ---
type MockDatabase struct {
	SetUploadRecordFunc    func(ctx context.Context, record *types.UploadRecord) error
	ClaimUploadRecordFunc  func(ctx context.Context, record *types.UploadRecord, staleBefore time.Time) (bool, *types.UploadRecord, error)
	DeleteUploadRecordFunc func(ctx context.Context, id string) error
}

func (m *MockDatabase) SetUploadRecord(ctx context.Context, record *types.UploadRecord) error {
	if m.SetUploadRecordFunc != nil {
		return m.SetUploadRecordFunc(ctx, record)
	}
	return nil
}

func (m *MockDatabase) ClaimUploadRecord(ctx context.Context, record *types.UploadRecord, staleBefore time.Time) (bool, *types.UploadRecord, error) {
	if m.ClaimUploadRecordFunc != nil {
		return m.ClaimUploadRecordFunc(ctx, record, staleBefore)
	}
	return true, nil, nil
}
func (m *MockDatabase) DeleteUploadRecord(ctx context.Context, id string) error {
	if m.DeleteUploadRecordFunc != nil {
		return m.DeleteUploadRecordFunc(ctx, id)
	}
	return nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)

	mu        sync.Mutex
	Published []event.Event
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	m.mu.Lock()
	m.Published = append(m.Published, e)
	m.mu.Unlock()

	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
	ReadFunc  func(ctx context.Context, bucket, object string) ([]byte, error)
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}
func (m *MockBlobStore) Read(ctx context.Context, bucket, object string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, bucket, object)
	}
	return []byte("mock-data"), nil
}
