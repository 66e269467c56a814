package perfstats

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimeAccumulator(t *testing.T) {
	a := TimeAccumulator{}
	require.Equal(t, time.Duration(0), a.Average())
	a.AddSample(10 * time.Millisecond)
	a.AddSample(30 * time.Millisecond)
	require.Equal(t, 20*time.Millisecond, a.Average())
	a.Reset()
	require.EqualValues(t, 0, a.Samples)
}

func TestRecorder(t *testing.T) {
	r := Recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add("detecting", 4*time.Millisecond)
			r.Add("compositing", 2*time.Millisecond)
		}()
	}
	wg.Wait()
	s := r.Summaries()
	require.Len(t, s, 2)
	require.Equal(t, "compositing", s[0].Name)
	require.EqualValues(t, 10, s[0].Samples)
	require.Equal(t, 4*time.Millisecond, s[1].Average)
	r.Reset()
	require.Empty(t, r.Summaries())
}
