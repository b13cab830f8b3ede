package prompts

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dydqjadlsp/detailpage/internal/domain/page"
)

func TestTextPromptSections(t *testing.T) {
	var inputs page.Inputs
	require.NoError(t, json.Unmarshal([]byte(`{"productName":"무선 이어폰","features":["노이즈 캔슬링","30시간 배터리"]}`), &inputs))

	out := Text(nil, "ecommerce", inputs, 6)

	assert.True(t, strings.HasPrefix(out, "당신은 전문 웹 디자이너이자 카피라이터입니다.\n\n[요청]\n"))
	assert.Contains(t, out, page.DefaultCatalog().Guidance("ecommerce"))
	assert.Contains(t, out, "[입력 정보]\nproductName: 무선 이어폰\nfeatures: 노이즈 캔슬링, 30시간 배터리\n\n[섹션 수]")
	assert.Contains(t, out, "총 6개의 섹션을 생성하세요.")
	assert.Contains(t, out, "[사용 가능한 섹션 타입]\nHero, Features, Benefits, Gallery, Testimonials, Process, Pricing, FAQ, CTA\n")
	assert.Contains(t, out, `"fontFamily": "Pretendard"`)
	assert.True(t, strings.HasSuffix(out, "8. items 배열은 3~6개의 항목을 포함하세요."))
}

func TestTextPromptUnknownCategoryUsesFallback(t *testing.T) {
	out := Text(nil, "spaceships", page.Inputs{{Key: "name", Value: "x"}}, 4)
	assert.Contains(t, out, page.DefaultCatalog().Guidance("saas"))
	assert.Contains(t, out, "Hero, Features, Benefits, Gallery, Testimonials, Process, CTA\n")
}

func TestTextPromptOfferedTypesCapped(t *testing.T) {
	out := Text(nil, "saas", nil, 20)
	assert.Contains(t, out, strings.Join(page.SectionTypes(), ", "))
}

func TestImagePrompt(t *testing.T) {
	out, err := Image("Hero", "조용한 몰입", "sleek black earbuds on marble", "ecommerce")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Create a high-quality, professional ecommerce detail page section image.\nSection type: Hero\nSection title: 조용한 몰입\nImage description: sleek black earbuds on marble\n"))
	assert.Contains(t, out, "- No text overlays (text will be added separately)")
	assert.True(t, strings.HasSuffix(out, "- 16:9 aspect ratio"))
}

func TestVibePromptIndentsDocument(t *testing.T) {
	doc := json.RawMessage(`{"content":[{"type":"Hero","props":{"id":"hero-0"}}],"root":{"props":{"title":"T"}}}`)
	out, err := Vibe("배경을 어둡게", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "[사용자 요청]\n배경을 어둡게\n")
	assert.Contains(t, out, "[현재 페이지 데이터]\n{\n  \"content\": [\n    {\n      \"type\": \"Hero\",")
	assert.True(t, strings.HasSuffix(out, "\"changes_summary\": \"변경 사항 요약\"\n}"))
}

func TestVibePromptRejectsInvalidJSON(t *testing.T) {
	_, err := Vibe("x", json.RawMessage(`{broken`))
	require.Error(t, err)
}

func TestTextPromptOffersHeroAndCTAForEveryPreset(t *testing.T) {
	catalog := page.DefaultCatalog()
	for _, p := range catalog.Presets {
		out := Text(catalog, "ecommerce", nil, p.Sections)
		_, rest, ok := strings.Cut(out, "[사용 가능한 섹션 타입]\n")
		require.True(t, ok, "preset %s", p.Key)
		offered := strings.Split(strings.SplitN(rest, "\n", 2)[0], ", ")
		assert.Equal(t, "Hero", offered[0], "preset %s", p.Key)
		assert.Contains(t, offered, "CTA", "preset %s", p.Key)
	}
}

func TestTextPromptIsDeterministic(t *testing.T) {
	body := []byte(`{"productName":"Widget","tags":["a","b"],"price":"19,900원"}`)
	render := func() string {
		var inputs page.Inputs
		require.NoError(t, json.Unmarshal(body, &inputs))
		return Text(nil, "ecommerce", inputs, 6)
	}
	first := render()
	for i := 0; i < 5; i++ {
		require.Equal(t, first, render())
	}
}
