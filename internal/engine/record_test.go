package engine

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, encodeRecord(&buf, setRecord("a", "1")))
	require.NoError(t, encodeRecord(&buf, setRecord("b", "2")))
	require.NoError(t, encodeRecord(&buf, removeRecord("a")))

	dec := json.NewDecoder(&buf)

	rec, err := decodeOne(dec)
	require.NoError(t, err)
	require.Equal(t, setRecord("a", "1"), rec)

	rec, err = decodeOne(dec)
	require.NoError(t, err)
	require.Equal(t, setRecord("b", "2"), rec)

	rec, err = decodeOne(dec)
	require.NoError(t, err)
	require.Equal(t, removeRecord("a"), rec)

	_, err = decodeOne(dec)
	require.Equal(t, io.EOF, err)
}

func TestDecodeOneAtTracksOffsets(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encodeRecord(&buf, setRecord("a", "1")))
	firstLen := int64(buf.Len())
	require.NoError(t, encodeRecord(&buf, setRecord("b", "2")))

	data := buf.Bytes()

	rec, next, err := decodeOneAt(data, 0)
	require.NoError(t, err)
	require.Equal(t, setRecord("a", "1"), rec)
	// The decoder stops right after the closing brace, so the first
	// record's trailing newline is left for the next decode to skip.
	require.Equal(t, firstLen-1, next)

	rec, _, err = decodeOneAt(data, next)
	require.NoError(t, err)
	require.Equal(t, setRecord("b", "2"), rec)
}

func TestWireRecordRejectsAmbiguousShape(t *testing.T) {
	_, err := wireRecord{}.toRecord()
	require.Error(t, err)

	_, err = wireRecord{Set: &setPayload{Key: "a"}, Remove: &removePayload{Key: "a"}}.toRecord()
	require.Error(t, err)
}
