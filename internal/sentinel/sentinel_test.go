package sentinel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractPicksLastValidLine(t *testing.T) {
	buf := "some chatter\n" +
		`RESULT: {"status":"done","validation":"pass","summary":"first"}` + "\n" +
		"more chatter\n" +
		`RESULT: {"status":"failed","validation":"fail","summary":"second"}`

	got := Extract(buf)
	require.NotNil(t, got)
	require.Equal(t, StatusFailed, got.Status)
	require.Equal(t, ValidationFail, got.Validation)
	require.Equal(t, "second", got.Summary)
}

func TestExtractSkipsUnparsableTrailingLine(t *testing.T) {
	buf := `RESULT: {"status":"done","validation":"pass","summary":"ok"}` + "\n" +
		"RESULT: this is not json at all"

	got := Extract(buf)
	require.NotNil(t, got)
	require.Equal(t, StatusDone, got.Status)
}

func TestExtractCoercesUnknownValidation(t *testing.T) {
	got := Extract(`RESULT: {"status":"done","validation":"maybe"}`)
	require.NotNil(t, got)
	require.Equal(t, ValidationUnknown, got.Validation)
}

func TestExtractMissingValidationDefaultsUnknown(t *testing.T) {
	got := Extract(`RESULT: {"status":"done"}`)
	require.NotNil(t, got)
	require.Equal(t, ValidationUnknown, got.Validation)
}

func TestExtractRejectsUnrecognizedStatus(t *testing.T) {
	got := Extract(`RESULT: {"status":"maybe"}`)
	require.Nil(t, got)
}

func TestExtractNoResultLine(t *testing.T) {
	got := Extract("just some text\nwith no sentinel at all")
	require.Nil(t, got)
}

func TestExtractSentinelAnywhereOnLine(t *testing.T) {
	got := Extract(`done talking. RESULT: {"status":"done","summary":"trailing"}`)
	require.NotNil(t, got)
	require.Equal(t, "trailing", got.Summary)
}
