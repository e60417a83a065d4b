package render

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/nodech/hsd-tools/internal/event"
	"github.com/nodech/hsd-tools/internal/progress"
)

func plainStyles() *Styles {
	return NewStyles(&bytes.Buffer{}, termenv.Ascii)
}

func plainLine(s string) line {
	return line{{TonePlain, s}}
}

func diff(prev, next []line) string {
	var b strings.Builder
	diffFrame(&b, plainStyles(), prev, next)
	return b.String()
}

func TestDiff_SingleCharacterPatch(t *testing.T) {
	got := diff([]line{plainLine("A b C")}, []line{plainLine("A x C")})

	want := cursorUp(1) + "\r" + cursorForward(2) + "x" + "\n"
	if got != want {
		t.Fatalf("diff = %q, want %q", got, want)
	}
	if strings.Contains(got, eraseToEnd) || strings.Contains(got, eraseLine) {
		t.Errorf("patch erased the line: %q", got)
	}
	if visible := strings.TrimSpace(ansi.Strip(got)); visible != "x" {
		t.Errorf("visible output = %q, want one character", visible)
	}
}

func TestDiff_FullRewrite(t *testing.T) {
	tests := []struct {
		name string
		prev line
		next line
	}{
		{"length changed", plainLine("A b C"), plainLine("A bb C")},
		{"two characters changed", plainLine("A b C"), plainLine("A x D")},
		{"tone changed", line{{ToneMuted, "abc"}}, line{{ToneSuccess, "abc"}}},
		{"span count changed", line{{TonePlain, "ab"}}, line{{TonePlain, "a"}, {TonePlain, "b"}}},
		{"two spans changed", line{{TonePlain, "a"}, {ToneBold, "b"}}, line{{TonePlain, "x"}, {ToneBold, "y"}}},
		{"width changed", plainLine("a-c"), plainLine("a日c")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := diff([]line{tt.prev}, []line{tt.next})
			want := cursorUp(1) + "\r" + eraseToEnd + tt.next.plain() + "\n"
			if got != want {
				t.Errorf("diff = %q, want %q", got, want)
			}
		})
	}
}

func TestDiff_PatchColumnCountsPrecedingSpans(t *testing.T) {
	prev := line{{ToneAccent, "⠋"}, {TonePlain, " "}, {ToneBold, "deps"}}
	next := line{{ToneAccent, "⠋"}, {TonePlain, " "}, {ToneBold, "dops"}}

	got := diff([]line{prev}, []line{next})
	want := cursorUp(1) + "\r" + cursorForward(3) + "o\n"
	if got != want {
		t.Errorf("diff = %q, want %q", got, want)
	}
}

func TestDiff_PatchAtFirstColumn(t *testing.T) {
	got := diff([]line{plainLine("⠋ x")}, []line{plainLine("⠙ x")})
	want := cursorUp(1) + "\r⠙\n"
	if got != want {
		t.Errorf("diff = %q, want %q", got, want)
	}
}

func TestDiff_UnchangedLines(t *testing.T) {
	frame := []line{plainLine("a"), plainLine("b")}
	if got, want := diff(frame, frame), cursorUp(2)+"\n\n"; got != want {
		t.Errorf("diff = %q, want %q", got, want)
	}
}

func TestDiff_Shrink(t *testing.T) {
	prev := []line{plainLine("a"), plainLine("b"), plainLine("c")}
	next := []line{plainLine("a")}

	got := diff(prev, next)
	want := cursorUp(3) + "\n" +
		"\r" + eraseLine + "\n" +
		"\r" + eraseLine + "\n" +
		cursorUp(2)
	if got != want {
		t.Errorf("diff = %q, want %q", got, want)
	}
}

func TestDiff_Grow(t *testing.T) {
	got := diff([]line{plainLine("a")}, []line{plainLine("a"), plainLine("b"), plainLine("c")})
	want := cursorUp(1) + "\n" +
		"\r" + eraseToEnd + "b\n" +
		"\r" + eraseToEnd + "c\n"
	if got != want {
		t.Errorf("diff = %q, want %q", got, want)
	}
}

func TestDiff_FirstFrame(t *testing.T) {
	got := diff(nil, []line{plainLine("a")})
	if got != "\r"+eraseToEnd+"a\n" {
		t.Errorf("diff = %q", got)
	}
}

func TestLine_Fit(t *testing.T) {
	l := line{{ToneAccent, "⠋"}, {TonePlain, " "}, {ToneBold, "dependencies"}, {ToneMuted, " - fetching"}}

	tests := []struct {
		width int
		want  string
	}{
		{0, "⠋ dependencies - fetching"},
		{100, "⠋ dependencies - fetching"},
		{10, "⠋ depen..."},
		{2, "⠋ "},
	}
	for _, tt := range tests {
		if got := l.fit(tt.width).plain(); got != tt.want {
			t.Errorf("fit(%d) = %q, want %q", tt.width, got, tt.want)
		}
	}
}

func registryWith(msgs ...event.Message) *progress.Registry {
	r := progress.NewRegistry()
	for _, m := range msgs {
		r.Apply(m)
	}
	return r
}

func plainFrame(lines []line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.plain()
	}
	return out
}

func TestFrame_HeaderAndSteps(t *testing.T) {
	r := registryWith(
		event.NewTaskCreated("deps", "reading"),
		event.NewStepStatusChanged("deps", "bcrypto", event.Done, "up to date"),
		event.NewStepCreated("deps", "bns"),
		event.NewTaskCreated("empty"),
		event.NewStepStatusChanged("finished", "x", event.Running),
		event.NewTaskStatusChanged("finished", event.Done),
	)

	got := plainFrame(frameBuilder{maxSteps: 8}.build(r.Snapshot()))
	want := []string{
		"○ (1/2) deps - reading",
		"  ● bcrypto - up to date",
		"  ○ bns",
		"○ empty",
		"● finished",
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("frame =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestFrame_Elision(t *testing.T) {
	var msgs []event.Message
	for i := 0; i < 10; i++ {
		msgs = append(msgs, event.NewStepStatusChanged("t", fmt.Sprintf("d%d", i), event.Done))
	}
	msgs = append(msgs, event.NewStepStatusChanged("t", "r0", event.Running))
	for i := 0; i < 10; i++ {
		msgs = append(msgs, event.NewStepCreated("t", fmt.Sprintf("w%d", i)))
	}
	msgs = append(msgs, event.NewTaskStatusChanged("t", event.Running))

	got := plainFrame(frameBuilder{maxSteps: 8}.build(registryWith(msgs...).Snapshot()))
	spin := SpinnerFrames[0]
	want := []string{
		spin + " (10/21) t",
		"  ● ...8 more...",
		"  ● d8",
		"  ● d9",
		"  " + spin + " r0",
		"  ○ w0",
		"  ○ w1",
		"  ○ w2",
		"  ○ ...7 more...",
	}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("frame =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestWithMaxSteps_RaisesSmallCaps(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 0},
		{-1, -1},
		{1, MinMaxSteps},
		{MinMaxSteps - 1, MinMaxSteps},
		{MinMaxSteps, MinMaxSteps},
		{12, 12},
	}
	for _, tt := range tests {
		if got := buildOptions([]Option{WithMaxSteps(tt.in)}).maxSteps; got != tt.want {
			t.Errorf("WithMaxSteps(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFrame_EveryGroupShownAtMinimumCap(t *testing.T) {
	spin := SpinnerFrames[0]
	fb := frameBuilder{maxSteps: buildOptions([]Option{WithMaxSteps(2)}).maxSteps}

	for d := 0; d <= 6; d++ {
		for r := 0; r <= 6; r++ {
			for w := 0; w <= 6; w++ {
				var msgs []event.Message
				for i := 0; i < d; i++ {
					msgs = append(msgs, event.NewStepStatusChanged("t", fmt.Sprintf("d%d", i), event.Done))
				}
				for i := 0; i < r; i++ {
					msgs = append(msgs, event.NewStepStatusChanged("t", fmt.Sprintf("r%d", i), event.Running))
				}
				for i := 0; i < w; i++ {
					msgs = append(msgs, event.NewStepCreated("t", fmt.Sprintf("w%d", i)))
				}
				if len(msgs) == 0 {
					continue
				}

				lines := plainFrame(fb.build(registryWith(msgs...).Snapshot()))[1:]
				if len(lines) > max(fb.maxSteps, d+r+w) {
					t.Errorf("d=%d r=%d w=%d: %d step lines", d, r, w, len(lines))
				}
				for _, g := range []struct {
					n      int
					prefix string
				}{{d, "  ● "}, {r, "  " + spin + " "}, {w, "  ○ "}} {
					if g.n == 0 {
						continue
					}
					found := false
					for _, l := range lines {
						if strings.HasPrefix(l, g.prefix) {
							found = true
							break
						}
					}
					if !found {
						t.Errorf("d=%d r=%d w=%d: no line for group %q:\n%s", d, r, w, g.prefix, strings.Join(lines, "\n"))
					}
				}
			}
		}
	}
}

func TestLive_Draw(t *testing.T) {
	var buf bytes.Buffer
	live := NewLive(&buf, WithProfile(termenv.Ascii))

	r := registryWith(
		event.NewTaskStatusChanged("deps", event.Running),
		event.NewStepStatusChanged("deps", "a", event.Running),
	)

	if err := live.Draw(r.Snapshot()); err != nil {
		t.Fatal(err)
	}
	first := buf.String()
	if !strings.HasPrefix(first, hideCursor) {
		t.Errorf("first draw does not hide cursor: %q", first)
	}
	if !strings.Contains(first, SpinnerFrames[0]+" (0/1) deps") {
		t.Errorf("first draw = %q", first)
	}

	// Only the spinner frame changes between ticks.
	buf.Reset()
	if err := live.Draw(r.Snapshot()); err != nil {
		t.Fatal(err)
	}
	second := buf.String()
	if strings.Contains(second, hideCursor) {
		t.Error("cursor hidden twice")
	}
	if strings.Contains(second, eraseToEnd) {
		t.Errorf("spinner tick rewrote a line: %q", second)
	}
	if n := strings.Count(second, SpinnerFrames[1]); n != 2 {
		t.Errorf("spinner patches = %d, want 2 in %q", n, second)
	}

	r.Apply(event.NewTaskStatusChanged("deps", event.Done))
	buf.Reset()
	if err := live.Draw(r.Snapshot()); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(buf.String(), cursorUp(1)) {
		t.Errorf("finished task did not shrink the frame: %q", buf.String())
	}

	buf.Reset()
	if err := live.Close(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != showCursor {
		t.Errorf("Close() wrote %q", buf.String())
	}
}

func TestLive_CloseWithoutDraw(t *testing.T) {
	var buf bytes.Buffer
	if err := NewLive(&buf).Close(); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Errorf("Close() before Draw wrote %q", buf.String())
	}
}

func TestText_Notify(t *testing.T) {
	var buf bytes.Buffer
	text := NewText(&buf, WithProfile(termenv.Ascii))

	text.Notify(event.NewTaskCreated("deps"))
	text.Notify(event.NewTaskStatusChanged("deps", event.Running))
	text.Notify(event.NewStepStatusChanged("deps", "bcrypto", event.Done, "up to date"))
	text.Notify(event.NewStepStatusChanged("deps", "bns", event.Failed))
	text.Notify(event.NewStepStatusChanged("deps", "old", event.Skipped))
	text.Notify(event.NewStepStatusChanged("deps", "x", event.Stopped, "waiting"))
	text.Notify(event.NewLogLine("out"))

	if err := text.Draw(progress.Snapshot{}); err != nil {
		t.Fatal(err)
	}

	want := []string{
		SpinnerFrames[0] + " Task deps has started",
		"● Step bcrypto of deps has finished: up to date",
		"○ Step bns of deps has failed",
		"○ Step old of deps was skipped",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("text output =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestText_NotifyRepeatedStatus(t *testing.T) {
	var buf bytes.Buffer
	text := NewText(&buf, WithProfile(termenv.Ascii))

	text.Notify(event.NewStepStatusChanged("t", "s", event.Running))
	text.Notify(event.NewStepStatusChanged("t", "s", event.Running, "50%"))
	text.Notify(event.NewTaskStatusChanged("t", event.Done))
	text.Notify(event.NewTaskStatusChanged("t", event.Done, "again"))
	text.Notify(event.NewStepStatusChanged("t", "s", event.Stopped, "paused"))
	text.Notify(event.NewStepStatusChanged("t", "s", event.Running))
	text.Notify(event.NewStepStatusChanged("u", "s", event.Running))

	want := []string{
		SpinnerFrames[0] + " Step s of t has started",
		"● Task t has finished",
		SpinnerFrames[0] + " Step s of t has started",
		SpinnerFrames[0] + " Step s of u has started",
	}
	got := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("text output =\n%s\nwant\n%s", strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"live", ModeLive, false},
		{"text", ModeText, false},
		{"fancy", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = (%q, %v)", tt.in, got, err)
		}
	}
}

func TestNew_SelectsRenderer(t *testing.T) {
	var buf bytes.Buffer
	if _, ok := New(ModeAuto, &buf).(*Text); !ok {
		t.Error("auto mode on a buffer should pick Text")
	}
	if _, ok := New(ModeLive, &buf).(*Live); !ok {
		t.Error("live mode should pick Live")
	}
	if _, ok := New(ModeText, &buf).(*Text); !ok {
		t.Error("text mode should pick Text")
	}
	if Interactive(&buf) {
		t.Error("buffer reported as interactive")
	}
}

func TestStyles_ColorProfile(t *testing.T) {
	st := NewStyles(&bytes.Buffer{}, termenv.ANSI256)
	painted := st.Paint(ToneSuccess, "ok")
	if painted == "ok" || ansi.Strip(painted) != "ok" {
		t.Errorf("Paint() = %q", painted)
	}
	if got := plainStyles().Paint(ToneSuccess, "ok"); got != "ok" {
		t.Errorf("ascii Paint() = %q", got)
	}
}
