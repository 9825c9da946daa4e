package scenarios

import (
	"context"
	"net/http"
	"sync"
	"time"
)

const notificationDeliveryTimeoutConstant = 2 * time.Second

type deliveryRecorderContextKey struct{}

// deliveryRecorder counts the flushes of a streamed response. The streamable transport
// flushes once per notification it writes, so the count tells a tool handler how many of
// its notifications have reached the client.
type deliveryRecorder struct {
	http.ResponseWriter
	mutex   sync.Mutex
	flushes int
	flushed chan struct{}
}

func newDeliveryRecorder(writer http.ResponseWriter) *deliveryRecorder {
	return &deliveryRecorder{ResponseWriter: writer, flushed: make(chan struct{})}
}

// Flush forwards to the wrapped writer and wakes pending waiters.
func (recorder *deliveryRecorder) Flush() {
	if flusher, ok := recorder.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
	recorder.mutex.Lock()
	recorder.flushes++
	close(recorder.flushed)
	recorder.flushed = make(chan struct{})
	recorder.mutex.Unlock()
}

// Unwrap exposes the wrapped writer to http.ResponseController.
func (recorder *deliveryRecorder) Unwrap() http.ResponseWriter {
	return recorder.ResponseWriter
}

func (recorder *deliveryRecorder) awaitFlushes(ctx context.Context, count int) error {
	for {
		recorder.mutex.Lock()
		if recorder.flushes >= count {
			recorder.mutex.Unlock()
			return nil
		}
		flushed := recorder.flushed
		recorder.mutex.Unlock()

		select {
		case <-flushed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func recordNotificationDelivery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		recorder := newDeliveryRecorder(writer)
		deliveryContext := context.WithValue(request.Context(), deliveryRecorderContextKey{}, recorder)
		next.ServeHTTP(recorder, request.WithContext(deliveryContext))
	})
}

// awaitNotificationDelivery blocks until count notifications of the current request have been
// written to the client, or the delivery timeout elapses. Requests not served over HTTP return at once.
func awaitNotificationDelivery(ctx context.Context, count int) error {
	recorder, ok := ctx.Value(deliveryRecorderContextKey{}).(*deliveryRecorder)
	if !ok || count <= 0 {
		return nil
	}
	waitContext, cancel := context.WithTimeout(ctx, notificationDeliveryTimeoutConstant)
	defer cancel()
	return recorder.awaitFlushes(waitContext, count)
}
