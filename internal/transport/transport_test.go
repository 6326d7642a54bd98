package transport

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourfrienddhruv/hornetq/pkg/stomp"
)

func TestMergeAddressPoliciesKeepsTighterLimit(t *testing.T) {
	acc := AddressPolicy{MaxFrameBytes: 4096}
	next := AddressPolicy{MaxFrameBytes: 1024}

	assert.Equal(t, AddressPolicy{MaxFrameBytes: 1024}, MergeAddressPolicies(acc, next))
	assert.Equal(t, AddressPolicy{MaxFrameBytes: 1024}, MergeAddressPolicies(next, acc))
}

func TestMergeAddressPoliciesIgnoresUnsetLimit(t *testing.T) {
	acc := AddressPolicy{MaxFrameBytes: 4096}
	next := AddressPolicy{}

	assert.Equal(t, AddressPolicy{MaxFrameBytes: 4096}, MergeAddressPolicies(acc, next))
}

func TestConnectRejectsEmptyAddress(t *testing.T) {
	_, err := Connect(Config{})
	assert.Error(t, err)
}

func TestErrorKindClassifiesKnownDecoderErrors(t *testing.T) {
	assert.Equal(t, "invalid_command", errorKind(stomp.ErrInvalidCommand))
	assert.Equal(t, "two_carriage_returns", errorKind(stomp.ErrTwoCarriageReturns))
	assert.Equal(t, "bad_carriage_returns", errorKind(stomp.ErrBadCarriageReturns))
	assert.Equal(t, "other", errorKind(errors.New("boom")))
}

func TestErrorKindClassifiesInvalidEndOfLineError(t *testing.T) {
	err := &stomp.InvalidEndOfLineError{Version: "1.0", Byte: '\r'}
	assert.Equal(t, "invalid_end_of_line", errorKind(err))
}

func TestCloseOnConnectionWithoutSubscriptionIsNoOp(t *testing.T) {
	c := &Connection{}
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}
