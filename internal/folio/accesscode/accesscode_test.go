package accesscode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ptulin/folio/server/internal/folio/accesscode"
)

func TestNext_SequentialFromEmpty(t *testing.T) {
	var issued []string
	for i := 1; i <= 42; i++ {
		next := accesscode.Next(issued)
		issued = append(issued, next)
	}

	assert.Equal(t, "PT-00001", issued[0])
	assert.Equal(t, "PT-00042", issued[41])
	for i := 1; i < len(issued); i++ {
		prev, _ := accesscode.Parse(issued[i-1])
		cur, _ := accesscode.Parse(issued[i])
		assert.Equal(t, prev+1, cur)
	}
}

func TestNext_IgnoresMalformedRows(t *testing.T) {
	existing := []string{
		"PT-00003",
		"PasswordID",
		"",
		"PT-",
		"PT-12abc",
		"XX-99999",
		"pt-00500",
		"PT--0007",
		" PT-00004 ",
	}
	assert.Equal(t, "PT-00005", accesscode.Next(existing))
}

func TestNext_NotContiguous(t *testing.T) {
	assert.Equal(t, "PT-00011", accesscode.Next([]string{"PT-00002", "PT-00010", "PT-00007"}))
}

func TestNext_EmptyAndGarbage(t *testing.T) {
	assert.Equal(t, "PT-00001", accesscode.Next(nil))
	assert.Equal(t, "PT-00001", accesscode.Next([]string{"header", "???"}))
}

func TestFormat_WidensPastFiveDigits(t *testing.T) {
	assert.Equal(t, "PT-00001", accesscode.Format(1))
	assert.Equal(t, "PT-99999", accesscode.Format(99999))
	assert.Equal(t, "PT-100000", accesscode.Format(100000))
	assert.Equal(t, "PT-100000", accesscode.Next([]string{"PT-99999"}))
}

func TestNext_HandEditedHugeCode(t *testing.T) {
	assert.Equal(t, "PT-00004", accesscode.Next([]string{"PT-00003", "PT-9223372036854775807"}))

	top := accesscode.Format(accesscode.MaxSequence)
	first := accesscode.Next([]string{"PT-00001", "PT-00003", top})
	assert.Equal(t, "PT-00002", first)
	assert.Equal(t, "PT-00004", accesscode.Next([]string{"PT-00001", "PT-00003", top, first}))
}

func TestParse(t *testing.T) {
	n, ok := accesscode.Parse("PT-00042")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = accesscode.Parse("PT-4 2")
	assert.False(t, ok)
	_, ok = accesscode.Parse("PT-99999999999999999999999")
	assert.False(t, ok)
	_, ok = accesscode.Parse("PT-2147483648")
	assert.False(t, ok)

	n, ok = accesscode.Parse("PT-2147483647")
	assert.True(t, ok)
	assert.Equal(t, accesscode.MaxSequence, n)
}

func TestIsActive(t *testing.T) {
	for _, v := range []string{"TRUE", "true", "True", "YES", "yes", "1", " TRUE "} {
		assert.Truef(t, accesscode.IsActive(v), "expected %q to be active", v)
	}
	for _, v := range []string{"FALSE", "", "no", "0", "revoked", "y"} {
		assert.Falsef(t, accesscode.IsActive(v), "expected %q to be inactive", v)
	}
}
