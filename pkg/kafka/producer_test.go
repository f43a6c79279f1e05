package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessages(t *testing.T) {
	msgs, err := Messages([]Event{
		{Key: "articles", Value: map[string]string{"query": "star wars"}},
		{Key: "books", Value: 3},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "articles", string(msgs[0].Key))
	assert.JSONEq(t, `{"query":"star wars"}`, string(msgs[0].Value))
	assert.Equal(t, "3", string(msgs[1].Value))
}

func TestMessagesRejectsUnencodable(t *testing.T) {
	_, err := Messages([]Event{{Key: "k", Value: make(chan int)}})
	assert.Error(t, err)
}
