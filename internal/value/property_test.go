package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cellsim/internal/fault"
)

func TestPropertyWritesInvisibleUntilCommit(t *testing.T) {
	p := NewProperty(PropAlive, Bool(false), AccessVisible, true)

	require.NoError(t, p.Set(Bool(true)))
	assert.Equal(t, Bool(false), p.Get(), "default-mode read sees the committed value")
	assert.Equal(t, Bool(true), p.GetNow(), "now-mode read sees the staged write")
	assert.True(t, p.Dirty())

	assert.True(t, p.Commit())
	assert.Equal(t, Bool(true), p.Get())
	assert.Equal(t, Bool(true), p.GetNow())
	assert.False(t, p.Dirty())
}

func TestPropertyLastWriteWins(t *testing.T) {
	p := NewProperty(PropCount, Int(0), AccessUser, false)
	require.NoError(t, p.Set(Int(1)))
	require.NoError(t, p.Set(Int(2)))
	assert.Equal(t, Int(2), p.GetNow())
	p.Commit()
	assert.Equal(t, Int(2), p.Get())
}

func TestPropertyCommitReportsChange(t *testing.T) {
	p := NewProperty(PropSpeed, Float(1), AccessUser, true)
	assert.False(t, p.Commit(), "nothing staged")

	require.NoError(t, p.Set(Float(1)))
	assert.False(t, p.Commit(), "same value is not a change")

	require.NoError(t, p.Set(Float(2)))
	assert.True(t, p.Commit())
}

func TestPropertyDiscard(t *testing.T) {
	p := NewProperty(PropLit, Bool(false), AccessVisible, false)
	require.NoError(t, p.Set(Bool(true)))
	p.Discard()
	assert.Equal(t, Bool(false), p.GetNow())
	assert.False(t, p.Commit())
}

func TestPropertySetRejectsWrongKind(t *testing.T) {
	p := NewProperty(PropVoltage, Float(0), AccessVisible, false)
	err := p.Set(Int(5))
	require.Error(t, err)
	assert.True(t, fault.Is(err, fault.CodeTypeMismatch))
	assert.False(t, p.Dirty())

	assert.Error(t, p.Set(nil))
}

func TestParsePropertyID(t *testing.T) {
	id, err := ParsePropertyID("POWERING_PIN")
	require.NoError(t, err)
	assert.Equal(t, PropPoweringPin, id)

	_, err = ParsePropertyID("NONE")
	assert.True(t, fault.Is(err, fault.CodeUnknownProperty))

	_, err = ParsePropertyID("powering_pin")
	assert.Error(t, err)

	ids := PropertyIDs()
	require.NotEmpty(t, ids)
	assert.Equal(t, PropAlive, ids[0])
	assert.Equal(t, PropState, ids[len(ids)-1])
}

func TestParseAccess(t *testing.T) {
	for _, a := range []Access{AccessHidden, AccessVisible, AccessUser} {
		got, err := ParseAccess(a.String())
		require.NoError(t, err)
		assert.Equal(t, a, got)
	}
	_, err := ParseAccess("admin")
	assert.Error(t, err)
}

func TestSet(t *testing.T) {
	s, err := NewSet(
		NewProperty(PropAlive, Bool(false), AccessVisible, true),
		NewProperty(PropCount, Int(0), AccessUser, true),
	)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	alive, ok := s.Lookup(PropAlive)
	require.True(t, ok)
	require.NoError(t, alive.Set(Bool(true)))
	assert.True(t, s.Dirty())

	_, err = s.Must(PropLit)
	assert.True(t, fault.Is(err, fault.CodeUnknownProperty))

	clone := s.Clone()
	var committed []PropertyID
	assert.Equal(t, 1, s.CommitAll(func(p *Property) { committed = append(committed, p.ID()) }))
	assert.Equal(t, []PropertyID{PropAlive}, committed)
	assert.False(t, s.Dirty())
	assert.Equal(t, 0, s.CommitAll(nil))

	// The clone kept its own staged slot.
	cloneAlive, _ := clone.Lookup(PropAlive)
	assert.True(t, cloneAlive.Dirty())
	cloneAlive.Discard()
	assert.Equal(t, Bool(false), cloneAlive.Get())
	assert.Equal(t, Bool(true), alive.Get())

	snap := s.Snapshot()
	assert.Equal(t, Bool(true), snap[PropAlive])
	assert.Equal(t, Int(0), snap[PropCount])
}

func TestNewSetRejectsDuplicates(t *testing.T) {
	_, err := NewSet(
		NewProperty(PropAlive, Bool(false), AccessVisible, true),
		NewProperty(PropAlive, Bool(true), AccessVisible, true),
	)
	assert.True(t, fault.Is(err, fault.CodeDuplicateProperty))
}
