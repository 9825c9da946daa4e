package utils_test

import (
	"bufio"
	"bytes"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/rebasebot/internal/utils"
)

type failingFlushWriter struct {
	bytes.Buffer
	flushCount int
}

func (writer *failingFlushWriter) Flush() error {
	writer.flushCount++
	return errors.New("disk full")
}

type syncCountingWriter struct {
	bytes.Buffer
	syncCount int
}

func (writer *syncCountingWriter) Sync() error {
	writer.syncCount++
	return nil
}

func TestFlushingWriterFlushesBufferedWriters(testInstance *testing.T) {
	var destination bytes.Buffer
	bufferedWriter := bufio.NewWriterSize(&destination, 4096)
	flushingWriter := utils.NewFlushingWriter(bufferedWriter)

	bytesWritten, writeError := flushingWriter.Write([]byte("rebase step 1\n"))
	require.NoError(testInstance, writeError)
	require.Equal(testInstance, 14, bytesWritten)
	require.Equal(testInstance, "rebase step 1\n", destination.String())
}

func TestFlushingWriterFlushesHTTPResponses(testInstance *testing.T) {
	responseRecorder := httptest.NewRecorder()
	flushingWriter := utils.NewFlushingWriter(responseRecorder)

	_, writeError := flushingWriter.Write([]byte("rebase step 2\n"))
	require.NoError(testInstance, writeError)
	require.True(testInstance, responseRecorder.Flushed)
	require.Equal(testInstance, "rebase step 2\n", responseRecorder.Body.String())
}

func TestFlushingWriterReportsFlushFailures(testInstance *testing.T) {
	destination := &failingFlushWriter{}
	flushingWriter := utils.NewFlushingWriter(destination)

	_, writeError := flushingWriter.Write([]byte("output"))
	require.EqualError(testInstance, writeError, "disk full")
	require.Equal(testInstance, 1, destination.flushCount)
	require.Equal(testInstance, "output", destination.String())
}

func TestNewFlushingWriterPassesThroughUnbufferedWriters(testInstance *testing.T) {
	syncingWriter := &syncCountingWriter{}
	require.Same(testInstance, syncingWriter, utils.NewFlushingWriter(syncingWriter))

	outputFile, createError := os.Create(filepath.Join(testInstance.TempDir(), "stream.log"))
	require.NoError(testInstance, createError)
	testInstance.Cleanup(func() {
		require.NoError(testInstance, outputFile.Close())
	})
	require.Same(testInstance, outputFile, utils.NewFlushingWriter(outputFile))

	_, writeError := utils.NewFlushingWriter(syncingWriter).Write([]byte("streamed"))
	require.NoError(testInstance, writeError)
	require.Zero(testInstance, syncingWriter.syncCount)
}

func TestNewFlushingWriterDoesNotDoubleWrap(testInstance *testing.T) {
	flushingWriter := utils.NewFlushingWriter(bufio.NewWriter(&bytes.Buffer{}))
	require.IsType(testInstance, &utils.FlushingWriter{}, flushingWriter)
	require.Same(testInstance, flushingWriter, utils.NewFlushingWriter(flushingWriter))
	require.Nil(testInstance, utils.NewFlushingWriter(nil))
}
