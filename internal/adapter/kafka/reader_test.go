package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTweet(t *testing.T) {
	t.Run("valid tweet", func(t *testing.T) {
		data := []byte(`{"id":"42","text":"Big storm in Tokyo","lang":"en","date":"2016-01-15T12:00:00Z","user":{"id":"7","home":"Amsterdam","utc_offset":3600},"coordinate":{"lon":139.77,"lat":35.68}}`)
		msg, err := parseTweet(data)

		require.NoError(t, err)
		assert.Equal(t, "42", msg.ID)
		assert.Equal(t, "en", msg.Language)
		assert.Equal(t, "7", msg.User.ID)
		assert.Equal(t, "Amsterdam", msg.User.Home)
		require.NotNil(t, msg.User.UTCOffset)
		assert.Equal(t, 3600, *msg.User.UTCOffset)
		require.NotNil(t, msg.Coordinate)
		assert.Equal(t, 139.77, msg.Coordinate.Lon)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := parseTweet([]byte("{not json"))
		require.Error(t, err)
	})

	t.Run("missing required fields", func(t *testing.T) {
		_, err := parseTweet([]byte(`{"text":"no id or lang"}`))
		require.Error(t, err)
	})

	t.Run("absent offset stays nil", func(t *testing.T) {
		data := []byte(`{"id":"1","text":"x","lang":"en","date":"2016-01-15T12:00:00Z","user":{"id":"7"}}`)
		msg, err := parseTweet(data)
		require.NoError(t, err)
		assert.Nil(t, msg.User.UTCOffset)
		assert.Nil(t, msg.Coordinate)
		assert.Nil(t, msg.BBox)
	})
}
