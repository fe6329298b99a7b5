package deepseek

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnumRoundTrip(t *testing.T) {
	t.Run("Role", func(t *testing.T) {
		for _, r := range []Role{RoleSystem, RoleUser, RoleAssistant, RoleTool} {
			data, err := json.Marshal(r)
			require.NoError(t, err)
			var got Role
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, r, got)
		}
	})

	t.Run("Model", func(t *testing.T) {
		for _, m := range []Model{ChatDefault, ReasoningDefault} {
			data, err := json.Marshal(m)
			require.NoError(t, err)
			var got Model
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, m, got)
		}
	})

	t.Run("FinishReason", func(t *testing.T) {
		all := []FinishReason{
			FinishStop, FinishLength, FinishContentFilter,
			FinishToolCalls, FinishInsufficientSystemResource,
		}
		for _, f := range all {
			data, err := json.Marshal(f)
			require.NoError(t, err)
			var got FinishReason
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, f, got)
		}
	})
}

func TestEnumWireTags(t *testing.T) {
	data, err := json.Marshal(ChatRequest{
		Model:    ReasoningDefault,
		Messages: []Message{SystemMessage("s"), UserMessage("u"), AssistantMessage("a"), NewMessage(RoleTool, "t")},
		Stream:   true,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"model": "deepseek-reasoner",
		"messages": [
			{"role": "system", "content": "s"},
			{"role": "user", "content": "u"},
			{"role": "assistant", "content": "a"},
			{"role": "tool", "content": "t"}
		],
		"stream": true
	}`, string(data))
}

func TestUnknownTagsRejected(t *testing.T) {
	var r Role
	assert.Error(t, json.Unmarshal([]byte(`"moderator"`), &r))

	var m Model
	assert.Error(t, json.Unmarshal([]byte(`"gpt-4"`), &m))

	var f FinishReason
	assert.Error(t, json.Unmarshal([]byte(`"halted"`), &f))

	_, err := json.Marshal(Role("moderator"))
	assert.Error(t, err)
}

func TestParseModel(t *testing.T) {
	m, err := ParseModel("deepseek-chat")
	require.NoError(t, err)
	assert.Equal(t, ChatDefault, m)

	_, err = ParseModel("")
	assert.Error(t, err)
}

func TestNonStreamingResponseDecode(t *testing.T) {
	body := `{"id":"y","model":"deepseek-chat","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}]}`

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(body), &resp))

	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "y", resp.ID)
	assert.Equal(t, "deepseek-chat", resp.Model)
	assert.Equal(t, "hi", resp.Choices[0].Message.Content)
	assert.Equal(t, RoleAssistant, resp.Choices[0].Message.Role)
	assert.Equal(t, FinishStop, resp.Choices[0].FinishReason)
	assert.Nil(t, resp.Usage)
	assert.Equal(t, "hi", resp.Content())

	// model 字段经序列化往返保持不变
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	var again Response
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, resp.Model, again.Model)
}

func TestDeltaContentDefaultsToEmpty(t *testing.T) {
	var d StreamingDelta
	require.NoError(t, json.Unmarshal([]byte(`{"index":0,"delta":{"role":"assistant"},"finish_reason":null}`), &d))

	assert.Equal(t, "", d.Delta.Content)
	require.NotNil(t, d.Delta.Role)
	assert.Equal(t, RoleAssistant, *d.Delta.Role)
	assert.False(t, d.Finished())

	require.NoError(t, json.Unmarshal([]byte(`{"index":0,"delta":{"content":null},"finish_reason":"length"}`), &d))
	assert.Equal(t, "", d.Delta.Content)
	assert.True(t, d.Finished())
}
