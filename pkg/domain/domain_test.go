package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/otsync/pkg/delta"
	"github.com/aretw0/otsync/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestState_Kinds(t *testing.T) {
	states := []domain.State{
		domain.Synchronized{},
		domain.AwaitingConfirm{SubmissionID: "a"},
		domain.AwaitingWithBuffer{SubmissionID: "b"},
	}
	kinds := []domain.StateKind{domain.KindSynchronized, domain.KindAwaitingConfirm, domain.KindAwaitingWithBuffer}

	for i, s := range states {
		assert.Equal(t, kinds[i], s.Kind())
		assert.NotEmpty(t, s.String())
	}
}

func TestSelection_Transform(t *testing.T) {
	sel := domain.Selection{Index: 2, Length: 3}

	ins := delta.Delta{}.Insert("ab", nil)
	assert.Equal(t, domain.Selection{Index: 4, Length: 3}, sel.Transform(ins, false))

	del := delta.Delta{}.Retain(1, nil).Delete(3)
	assert.Equal(t, domain.Selection{Index: 1, Length: 1}, sel.Transform(del, false))

	atCursor := delta.Delta{}.Retain(2, nil).Insert("x", nil)
	assert.Equal(t, domain.Selection{Index: 2, Length: 4}, sel.Transform(atCursor, true))
}

func TestResolveAuthor(t *testing.T) {
	op := delta.Delta{}.Retain(3, nil).Insert("hi", delta.Attributes{"bold": true, domain.KeyAuthor: 42})

	assert.Equal(t, "42", domain.ResolveAuthor(op, nil))
	assert.Equal(t, "Ada", domain.ResolveAuthor(op, func(id string) string {
		if id == "42" {
			return "Ada"
		}
		return ""
	}))
	assert.Equal(t, "42", domain.ResolveAuthor(op, func(string) string { return "" }))
	assert.Empty(t, domain.ResolveAuthor(delta.Delta{}.Insert("x", delta.Attributes{"bold": true}), nil))

	mixed := delta.Delta{}.
		Retain(1, delta.Attributes{"italic": true}).
		Insert("a", delta.Attributes{domain.KeyAuthor: "ada"}).
		Insert("b", delta.Attributes{domain.KeyAuthor: "bob", "bold": true})
	assert.Equal(t, "ada", domain.ResolveAuthor(mixed, nil))
}

func TestApplyOperationError(t *testing.T) {
	cause := errors.New("boom")
	err := &domain.ApplyOperationError{Author: "Ada", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Ada")
}

func TestChainHooks(t *testing.T) {
	var calls []string
	chained := domain.ChainHooks(
		domain.LifecycleHooks{OnSend: func(*domain.OperationEvent) { calls = append(calls, "first") }},
		domain.LifecycleHooks{},
		domain.LifecycleHooks{
			OnSend:       func(*domain.OperationEvent) { calls = append(calls, "third") },
			OnApplyError: func(*domain.ApplyOperationError) { calls = append(calls, "error") },
		},
	)

	chained.OnSend(&domain.OperationEvent{})
	chained.OnAck(&domain.OperationEvent{})
	chained.OnApplyError(&domain.ApplyOperationError{})
	chained.OnStateChange(&domain.StateChangeEvent{})

	assert.Equal(t, []string{"first", "third", "error"}, calls)
}
