package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BoardRelay/internal/domain"
	"BoardRelay/internal/ports"
)

// fakeMessenger records outbound calls in order.
type fakeMessenger struct {
	calls        []string
	texts        []string
	groups       [][]domain.MediaItem
	rejectGroups bool
	groupErr     error
}

func (m *fakeMessenger) SendText(_ context.Context, text string) error {
	m.calls = append(m.calls, "text")
	m.texts = append(m.texts, text)
	return nil
}

func (m *fakeMessenger) SendMediaGroup(_ context.Context, items []domain.MediaItem) error {
	m.calls = append(m.calls, "group")
	m.groups = append(m.groups, items)
	if m.groupErr != nil {
		return m.groupErr
	}
	if m.rejectGroups {
		return &ports.Rejection{Code: 400, Description: "wrong file"}
	}
	return nil
}

func testPost(number int) domain.PostSummary {
	return domain.PostSummary{
		ID:    domain.PostID{Site: "example", Board: "humor", Number: number},
		Title: fmt.Sprintf("post %d", number),
		URL:   fmt.Sprintf("https://example.com/bbs/board.php?bo_table=humor&wr_id=%d", number),
	}
}

func TestDeliverTextOnly(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	d := NewDeliverer(m, DeliverOptions{}, nil)

	post := testPost(1)
	require.NoError(t, d.Deliver(context.Background(), post, domain.Content{Summary: "a short body"}))

	require.Equal(t, []string{"text"}, m.calls)
	assert.Contains(t, m.texts[0], "<b>post 1</b>")
	assert.Contains(t, m.texts[0], "a short body")
	assert.Contains(t, m.texts[0], post.URL)
}

func TestDeliverCaptionTruncation(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	d := NewDeliverer(m, DeliverOptions{CaptionChars: 900}, nil)

	content := domain.Content{Summary: strings.Repeat("x", 1000)}
	require.NoError(t, d.Deliver(context.Background(), testPost(1), content))

	require.Len(t, m.texts, 1)
	caption := []rune(m.texts[0])
	assert.Len(t, caption, 900)
	assert.Equal(t, '…', caption[len(caption)-1])
	assert.False(t, strings.Contains(m.texts[0], "……"), "exactly one truncation marker")
}

func TestDeliverTitleOverride(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	d := NewDeliverer(m, DeliverOptions{}, nil)

	content := domain.Content{TitleOverride: "better <title>"}
	require.NoError(t, d.Deliver(context.Background(), testPost(1), content))

	assert.Contains(t, m.texts[0], "<b>better &lt;title&gt;</b>")
}

func TestDeliverBatchesMediaWithContinuationMarkers(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	d := NewDeliverer(m, DeliverOptions{BatchLimit: 10}, nil)

	content := domain.Content{Summary: "body"}
	for i := 0; i < 22; i++ {
		content.Images = append(content.Images, fmt.Sprintf("https://cdn.example.com/%d.jpg", i))
	}
	content.Videos = []string{"https://cdn.example.com/clip.mp4"}

	require.NoError(t, d.Deliver(context.Background(), testPost(7), content))

	require.Equal(t, []string{"group", "group", "group"}, m.calls)
	require.Len(t, m.groups[0], 10)
	require.Len(t, m.groups[1], 10)
	require.Len(t, m.groups[2], 3)

	// Full caption only on the very first item; later batches carry markers.
	assert.Contains(t, m.groups[0][0].Caption, "<b>post 7</b>")
	for _, item := range m.groups[0][1:] {
		assert.Empty(t, item.Caption)
	}
	assert.Equal(t, "(2/3) continued", m.groups[1][0].Caption)
	assert.Equal(t, "(3/3) continued", m.groups[2][0].Caption)

	// Images first, the trailing video last, typed by extension.
	last := m.groups[2][len(m.groups[2])-1]
	assert.Equal(t, domain.MediaVideo, last.Type)
	assert.Equal(t, domain.MediaPhoto, m.groups[0][0].Type)
}

func TestDeliverFallsBackToTextOnRejection(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{rejectGroups: true}
	d := NewDeliverer(m, DeliverOptions{}, nil)

	content := domain.Content{Images: []string{"https://cdn.example.com/a.jpg"}}
	require.NoError(t, d.Deliver(context.Background(), testPost(3), content))

	require.Equal(t, []string{"group", "text"}, m.calls)
	assert.Contains(t, m.texts[0], "<b>post 3</b>", "fallback carries the caption content")
}

func TestDeliverPropagatesTransportError(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{groupErr: errors.New("connection reset")}
	d := NewDeliverer(m, DeliverOptions{}, nil)

	content := domain.Content{Images: []string{"https://cdn.example.com/a.jpg"}}
	err := d.Deliver(context.Background(), testPost(3), content)
	require.Error(t, err)
	assert.NotContains(t, m.calls, "text")
}

func TestDeliverEmbedsLast(t *testing.T) {
	t.Parallel()

	m := &fakeMessenger{}
	d := NewDeliverer(m, DeliverOptions{EmbedLimit: 5}, nil)

	content := domain.Content{Images: []string{"https://cdn.example.com/a.jpg"}}
	for i := 0; i < 7; i++ {
		content.Embeds = append(content.Embeds, fmt.Sprintf("https://player.example.com/%d", i))
	}

	require.NoError(t, d.Deliver(context.Background(), testPost(2), content))

	require.Equal(t, []string{"group", "text"}, m.calls)
	embeds := m.texts[0]
	assert.Equal(t, 5, strings.Count(embeds, "https://player.example.com/"))
	assert.Contains(t, embeds, "https://player.example.com/4")
	assert.NotContains(t, embeds, "https://player.example.com/5")
}
