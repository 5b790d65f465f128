package ingest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"address-search-api/internal/models"
	"address-search-api/internal/service"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeReader replays a fixed list of fetch results and then reports the reader as closed
type fakeReader struct {
	mu        sync.Mutex
	results   []fetchResult
	committed []int64
	closed    bool
}

type fetchResult struct {
	msg kafka.Message
	err error
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) == 0 {
		return kafka.Message{}, io.EOF
	}
	next := r.results[0]
	r.results = r.results[1:]
	return next.msg, next.err
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// MockAddressAdder is a mock implementation of the AddressAdder interface
type MockAddressAdder struct {
	mock.Mock
}

func (m *MockAddressAdder) AddAddress(ctx context.Context, address models.NewAddress) (models.Address, error) {
	args := m.Called(ctx, address)
	return args.Get(0).(models.Address), args.Error(1)
}

func message(offset int64, value string) fetchResult {
	return fetchResult{msg: kafka.Message{Topic: "addresses", Offset: offset, Value: []byte(value)}}
}

func TestConsumer_Run(t *testing.T) {
	denver := models.NewAddress{Street: "Main St", City: "Denver", State: "CO", ZipCode: "80202", Latitude: 39.7, Longitude: -104.9}
	broadway := models.NewAddress{Street: "Broadway", City: "Denver", State: "CO", ZipCode: "80203", Latitude: 39.7, Longitude: -104.9}
	orphan := models.NewAddress{Street: "Elm St", City: "Denver", State: "CO", ZipCode: "80204", Latitude: 39.7, Longitude: -104.9}
	blank := models.NewAddress{City: "Denver", State: "CO", ZipCode: "80205", Latitude: 39.7, Longitude: -104.9}

	reader := &fakeReader{results: []fetchResult{
		message(0, `{"street":"Main St","city":"Denver","state":"CO","zip_code":"80202","latitude":39.7,"longitude":-104.9}`),
		message(1, `not json`),
		message(2, `{"street":"","city":"Denver","state":"CO","zip_code":"80205","latitude":39.7,"longitude":-104.9}`),
		message(3, `{"street":"Broadway","city":"Denver","state":"CO","zip_code":"80203","latitude":39.7,"longitude":-104.9}`),
		{err: fmt.Errorf("broker unavailable")},
		message(4, `{"street":"Elm St","city":"Denver","state":"CO","zip_code":"80204","latitude":39.7,"longitude":-104.9}`),
	}}

	adder := new(MockAddressAdder)
	adder.On("AddAddress", mock.Anything, denver).Return(models.Address{ID: 1}, nil)
	adder.On("AddAddress", mock.Anything, blank).Return(models.Address{}, &service.ValidationError{Field: "street", Reason: "must not be empty"})
	adder.On("AddAddress", mock.Anything, broadway).Return(models.Address{}, assert.AnError).Twice()
	adder.On("AddAddress", mock.Anything, broadway).Return(models.Address{ID: 2}, nil).Once()
	adder.On("AddAddress", mock.Anything, orphan).Return(models.Address{}, fmt.Errorf("service: %w", models.ErrCustomerNotFound))

	consumer := NewConsumer(reader, adder, zerolog.Nop())
	consumer.backoff = time.Millisecond

	require.NoError(t, consumer.Run(context.Background()))

	// offset 3 is retried until stored, and offset 4 is only fetched afterwards
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, reader.committed)
	adder.AssertNumberOfCalls(t, "AddAddress", 6)
	assert.True(t, reader.closed)
	adder.AssertExpectations(t)
}

func TestConsumer_RunStopsOnCancel(t *testing.T) {
	reader := &fakeReader{}
	for i := range 3 {
		reader.results = append(reader.results, fetchResult{err: fmt.Errorf("fetch %d failed", i)})
	}

	consumer := NewConsumer(reader, new(MockAddressAdder), zerolog.Nop())
	consumer.backoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- consumer.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
	assert.True(t, reader.closed)
}

func TestConsumer_StoreFailureIsNotCommittedPast(t *testing.T) {
	denver := models.NewAddress{Street: "Main St", City: "Denver", State: "CO", ZipCode: "80202", Latitude: 39.7, Longitude: -104.9}
	reader := &fakeReader{results: []fetchResult{
		message(3, `{"street":"Main St","city":"Denver","state":"CO","zip_code":"80202","latitude":39.7,"longitude":-104.9}`),
		message(4, `{"street":"Broadway","city":"Denver","state":"CO","zip_code":"80203","latitude":39.7,"longitude":-104.9}`),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := 0
	adder := new(MockAddressAdder)
	adder.On("AddAddress", mock.Anything, denver).Return(models.Address{}, assert.AnError).Run(func(mock.Arguments) {
		attempts++
		if attempts == 3 {
			cancel()
		}
	})

	consumer := NewConsumer(reader, adder, zerolog.Nop())
	consumer.backoff = time.Millisecond

	require.NoError(t, consumer.Run(ctx))

	assert.Equal(t, 3, attempts)
	assert.Empty(t, reader.committed)
	// offset 4 was never fetched while offset 3 was unstored
	assert.Len(t, reader.results, 1)
	assert.True(t, reader.closed)
}
