package editions

import (
	"testing"

	"artmarket/internal/domain/works"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edition(n, ap int, sold ...string) works.EditionDescriptor {
	return works.EditionDescriptor{
		IsEdition:    true,
		NumericSize:  n,
		APSize:       ap,
		SoldEditions: sold,
	}
}

func TestEnumerate(t *testing.T) {
	assert.Equal(t, []string{"1/3", "2/3", "3/3", "AP 1/1"}, Enumerate(edition(3, 1)))
	assert.Empty(t, Enumerate(works.EditionDescriptor{NumericSize: 5, APSize: 2}))
	assert.Empty(t, Enumerate(edition(0, 0)))
}

func TestEnumerateCountAndDistinct(t *testing.T) {
	for n := 0; n <= 12; n++ {
		for ap := 0; ap <= 5; ap++ {
			ids := Enumerate(edition(n, ap))
			require.Len(t, ids, n+ap)

			seen := map[string]bool{}
			for _, id := range ids {
				assert.False(t, seen[id], "duplicate %s", id)
				seen[id] = true
			}
		}
	}
}

func TestSetSaleState(t *testing.T) {
	t.Run("sold then unsold returns to empty", func(t *testing.T) {
		d := edition(3, 1)

		d, err := SetSaleState(d, "2/3", true)
		require.NoError(t, err)
		assert.Equal(t, []string{"2/3"}, []string(d.SoldEditions))

		d, err = SetSaleState(d, "2/3", false)
		require.NoError(t, err)
		assert.Empty(t, d.SoldEditions)
	})

	t.Run("idempotent", func(t *testing.T) {
		once, err := SetSaleState(edition(3, 1), "AP 1/1", true)
		require.NoError(t, err)
		twice, err := SetSaleState(once, "AP 1/1", true)
		require.NoError(t, err)
		assert.Equal(t, once.SoldEditions, twice.SoldEditions)

		unsold, err := SetSaleState(edition(3, 1), "1/3", false)
		require.NoError(t, err)
		assert.Empty(t, unsold.SoldEditions)
	})

	t.Run("keeps enumeration order", func(t *testing.T) {
		d := edition(3, 1)
		for _, id := range []string{"AP 1/1", "3/3", "1/3"} {
			var err error
			d, err = SetSaleState(d, id, true)
			require.NoError(t, err)
		}
		assert.Equal(t, []string{"1/3", "3/3", "AP 1/1"}, []string(d.SoldEditions))
	})

	t.Run("unknown identifier", func(t *testing.T) {
		d := edition(3, 1)
		out, err := SetSaleState(d, "4/3", true)
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
		assert.Equal(t, d, out)

		_, err = SetSaleState(works.EditionDescriptor{}, "1/1", true)
		assert.ErrorIs(t, err, ErrInvalidIdentifier)
	})
}

func TestIsFullySold(t *testing.T) {
	assert.False(t, IsFullySold(edition(0, 0)))
	assert.False(t, IsFullySold(works.EditionDescriptor{}))
	assert.False(t, IsFullySold(edition(2, 1, "1/2", "2/2")))
	assert.True(t, IsFullySold(edition(2, 1, "1/2", "2/2", "AP 1/1")))

	d := edition(2, 0)
	all := Enumerate(d)
	for i, id := range all {
		var err error
		d, err = SetSaleState(d, id, true)
		require.NoError(t, err)
		assert.Equal(t, i == len(all)-1, IsFullySold(d))
	}
}

func TestAvailable(t *testing.T) {
	assert.Equal(t, []string{"1/3", "3/3"}, Available(edition(3, 0, "2/3")))
	assert.Empty(t, Available(edition(1, 0, "1/1")))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(edition(3, 1, "2/3")))

	err := Validate(edition(1, 1, "2/3"))
	require.Error(t, err)
	assert.True(t, works.IsValidation(err))
	assert.Contains(t, err.Error(), "2/3")

	assert.True(t, works.IsValidation(Validate(edition(-1, 0))))
	assert.NoError(t, Validate(edition(MaxSize, MaxSize)))
	assert.True(t, works.IsValidation(Validate(edition(2000000000, 0))))
	assert.True(t, works.IsValidation(Validate(edition(1, MaxSize+1))))
	assert.True(t, works.IsValidation(Validate(works.EditionDescriptor{SoldEditions: []string{"1/1"}})))
	assert.Equal(t, []string{"AP 2/2"}, OrphanedSales(edition(3, 1, "1/3", "AP 2/2")))
}
