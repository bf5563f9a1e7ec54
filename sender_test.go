package msgbus

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropagating_StopsAtFirstFailure(t *testing.T) {
	var c callLog
	boom := errors.New("boom")
	ls := []Listener{c.listener("a", nil), c.listener("b", boom), c.listener("c", nil)}

	err := Propagating().Send(context.Background(), ForDestination("d"), ls)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a", "b"}, c.calls())
}

func TestContinueOnFailure_InvokesEveryListener(t *testing.T) {
	var c callLog
	boom := errors.New("boom")
	ls := []Listener{c.listener("a", nil), c.listener("b", boom), c.listener("c", boom)}

	var reported []error
	ctx := WithFailureReporter(context.Background(), func(_ *Message, err error) {
		reported = append(reported, err)
	})

	err := ContinueOnFailure().Send(ctx, ForDestination("d"), ls)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, c.calls())
	assert.Len(t, reported, 2)
}

func TestContinueOnFailure_WithoutReporter(t *testing.T) {
	var c callLog
	ls := []Listener{c.listener("a", errors.New("x")), c.listener("b", nil)}
	require.NoError(t, ContinueOnFailure().Send(context.Background(), ForDestination("d"), ls))
	assert.Equal(t, []string{"a", "b"}, c.calls())
}

func TestSenderByName(t *testing.T) {
	s, err := SenderByName("")
	require.NoError(t, err)
	assert.NotNil(t, s)

	_, err = SenderByName(SenderContinueOnFailure)
	require.NoError(t, err)

	_, err = SenderByName("broadcast")
	require.Error(t, err)
}

func TestSenderFunc_Custom(t *testing.T) {
	var c callLog
	reverse := SenderFunc(func(ctx context.Context, msg *Message, ls []Listener) error {
		for i := len(ls) - 1; i >= 0; i-- {
			if err := ls[i].Receive(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, reverse.Send(context.Background(), ForDestination("d"),
		[]Listener{c.listener("a", nil), c.listener("b", nil)}))
	assert.Equal(t, []string{"b", "a"}, c.calls())
}

func TestReportFailure(t *testing.T) {
	msg := ForDestination("d")
	assert.False(t, ReportFailure(context.Background(), msg, errors.New("x")))

	var got error
	ctx := WithFailureReporter(context.Background(), func(_ *Message, err error) { got = err })
	boom := errors.New("boom")
	assert.True(t, ReportFailure(ctx, msg, boom))
	assert.Same(t, boom, got)
}
