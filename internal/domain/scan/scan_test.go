package scan

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpload_HappyPath(t *testing.T) {
	u := NewUpload(&File{Name: "brain.dcm", Size: 10})
	assert.Equal(t, StateSelected, u.State)

	require.NoError(t, u.Advance(StateValidated))
	require.NoError(t, u.Advance(StateTransferring))
	require.NoError(t, u.Advance(StateCommitted))
	assert.True(t, u.State.Terminal())
}

func TestUpload_InvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from State
		to   State
	}{
		{"skip validation", StateSelected, StateTransferring},
		{"selected straight to committed", StateSelected, StateCommitted},
		{"abort before transfer", StateValidated, StateAborted},
		{"reject mid transfer", StateTransferring, StateRejected},
		{"leave committed", StateCommitted, StateTransferring},
		{"leave rejected", StateRejected, StateValidated},
		{"leave aborted", StateAborted, StateTransferring},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &Upload{State: tt.from}
			err := u.Advance(tt.to)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, u.State, "failed advance must not move the state")
		})
	}
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, StateCommitted.Terminal())
	assert.True(t, StateRejected.Terminal())
	assert.True(t, StateAborted.Terminal())
	assert.False(t, StateSelected.Terminal())
	assert.False(t, StateValidated.Terminal())
	assert.False(t, StateTransferring.Terminal())
}

func TestRecord_DecodeAndMeta(t *testing.T) {
	raw := []byte{0x00, 0x42, 0xff, 0x10}
	rec := Record{
		FileName:  "brain.dcm",
		SizeBytes: int64(len(raw)),
		Format:    FormatDICOM,
		Payload:   base64.StdEncoding.EncodeToString(raw),
	}

	decoded, err := rec.Decode()
	require.NoError(t, err)
	assert.Equal(t, raw, decoded)

	meta := rec.Meta()
	assert.Empty(t, meta.Payload)
	assert.Equal(t, rec.FileName, meta.FileName)
	assert.Equal(t, rec.SizeBytes, meta.SizeBytes)
	assert.NotEmpty(t, rec.Payload, "stripping the copy leaves the original intact")
}

func TestFile_MatchesFormat(t *testing.T) {
	allowed := []string{".dcm"}

	tests := []struct {
		name string
		want bool
	}{
		{"brain.dcm", true},
		{"BRAIN.DCM", true},
		{"study.DcM", true},
		{"export-dicom-001", true},
		{"MY_DICOM_STUDY.bin", true},
		{"report.pdf", false},
		{"brain.dcm.txt", false},
		{"dcm", false},
		{"", false},
	}

	for _, tt := range tests {
		f := &File{Name: tt.name}
		assert.Equal(t, tt.want, f.MatchesFormat(allowed), "name %q", tt.name)
	}
}
