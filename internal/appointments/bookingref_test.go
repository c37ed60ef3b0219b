package appointments

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlotRefsAreZoneIndependent(t *testing.T) {
	utc := time.Date(2026, 3, 15, 1, 15, 0, 0, time.UTC)
	plus2 := utc.In(time.FixedZone("EET", 2*3600))

	ref1, doc1 := SlotRefs("ada@example.com", "Ada Grey", utc)
	ref2, doc2 := SlotRefs("ADA@example.com ", "ada  grey", plus2)
	assert.Equal(t, ref1, ref2)
	assert.Equal(t, doc1, doc2)
}

func TestSlotRefsNameKeyIgnoresEmail(t *testing.T) {
	at := time.Date(2026, 3, 14, 21, 15, 0, 0, time.UTC)

	withEmail, doctorRef := SlotRefs("jane@clinic.example", "Jane Roe", at)
	withoutEmail, noDoctorRef := SlotRefs("", "Jane Roe", at)
	assert.Equal(t, withEmail, withoutEmail)
	assert.NotEmpty(t, doctorRef)
	assert.Empty(t, noDoctorRef)
	assert.NotEqual(t, withEmail, doctorRef)
}

func TestSlotRefsNormalizeTitle(t *testing.T) {
	at := time.Date(2026, 3, 14, 21, 15, 0, 0, time.UTC)
	tests := []string{"Dr. Jane Roe", "dr jane roe", "Doctor Jane  Roe", " JANE ROE "}
	want, _ := SlotRefs("", "Jane Roe", at)
	for _, name := range tests {
		got, _ := SlotRefs("", name, at)
		assert.Equal(t, want, got, name)
	}

	other, _ := SlotRefs("", "Jane Roe", at.Add(time.Minute))
	assert.NotEqual(t, want, other, "different instants must differ")

	// a lone title is a name, not a prefix
	dr, _ := SlotRefs("", "Dr", at)
	assert.NotEqual(t, slotHash("name", "", at.UTC().Format(time.RFC3339)), dr)
}
