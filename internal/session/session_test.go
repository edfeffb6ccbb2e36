package session

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"CuteTutor/internal/tutor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(0)
	a := m.Create("alice")
	b := m.Create("alice")
	require.NotEqual(t, a.ID, b.ID)

	got, err := m.Get(a.ID, "alice")
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = m.Get(a.ID, "bob")
	require.ErrorIs(t, err, ErrSessionNotFound)

	m.Delete(a.ID)
	_, err = m.Get(a.ID, "alice")
	require.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Get(b.ID, "alice")
	require.NoError(t, err)
}

func TestState_LearningStyleDefaultsToVisual(t *testing.T) {
	st := NewManager(0).Create("alice")
	assert.Equal(t, tutor.Visual, st.LearningStyle())

	st.SetLearningStyle(tutor.Kinesthetic)
	assert.Equal(t, tutor.Kinesthetic, st.LearningStyle())
}

func TestState_ChatHistoryIsCopied(t *testing.T) {
	st := NewManager(0).Create("alice")
	st.AppendTurn(tutor.Turn{Speaker: tutor.SpeakerChild, Text: "hi"})

	h := st.ChatHistory()
	h[0].Text = "changed"
	assert.Equal(t, "hi", st.ChatHistory()[0].Text)

	st.ResetChat()
	assert.Empty(t, st.ChatHistory())
}

func TestState_ConcurrentAppends(t *testing.T) {
	st := NewManager(0).Create("alice")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.AppendTurn(tutor.Turn{Speaker: tutor.SpeakerChild, Text: "x"})
		}()
	}
	wg.Wait()
	assert.Len(t, st.ChatHistory(), 50)
}

func TestManager_ExpiredSessionsAreDropped(t *testing.T) {
	m := NewManager(time.Hour)
	now := time.Date(2024, 5, 12, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	old := m.Create("alice")
	assert.Equal(t, now.Add(time.Hour), old.ExpiresAt)

	now = now.Add(30 * time.Minute)
	_, err := m.Get(old.ID, "alice")
	require.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = m.Get(old.ID, "alice")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, m.Len())

	// 만료된 세션은 다음 로그인 때 정리됨
	stale := m.Create("bob")
	now = now.Add(2 * time.Hour)
	m.Create("carol")
	assert.Equal(t, 1, m.Len())
	_, err = m.Get(stale.ID, "bob")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestState_ExchangeRecordsOnlyOnSuccess(t *testing.T) {
	st := NewManager(0).Create("alice")
	child := tutor.Turn{Speaker: tutor.SpeakerChild, Text: "hi"}

	_, err := st.Exchange(child, func([]tutor.Turn) (string, error) {
		return "", errors.New("model down")
	})
	require.Error(t, err)
	assert.Empty(t, st.ChatHistory())

	reply, err := st.Exchange(child, func(history []tutor.Turn) (string, error) {
		assert.Equal(t, []tutor.Turn{child}, history)
		return "hello", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", reply)
	assert.Equal(t, []tutor.Turn{child, {Speaker: tutor.SpeakerTutor, Text: "hello"}}, st.ChatHistory())
}

func TestState_ConcurrentExchangesStayPaired(t *testing.T) {
	st := NewManager(0).Create("alice")

	var (
		mu   sync.Mutex
		seen []int
		wg   sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Exchange(tutor.Turn{Speaker: tutor.SpeakerChild, Text: "q"}, func(history []tutor.Turn) (string, error) {
				mu.Lock()
				seen = append(seen, len(history))
				mu.Unlock()
				return "a", nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	history := st.ChatHistory()
	require.Len(t, history, 40)
	for i, turn := range history {
		if i%2 == 0 {
			assert.Equal(t, tutor.SpeakerChild, turn.Speaker, i)
		} else {
			assert.Equal(t, tutor.SpeakerTutor, turn.Speaker, i)
		}
	}

	// 각 턴은 앞선 턴이 모두 기록된 대화를 봄
	sort.Ints(seen)
	for i, n := range seen {
		assert.Equal(t, 2*i+1, n)
	}
}
