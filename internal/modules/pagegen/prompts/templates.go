package prompts

const textTemplate = `당신은 전문 웹 디자이너이자 카피라이터입니다.

[요청]
{{.Guidance}}

[입력 정보]
{{range $i, $l := .InputLines}}{{if $i}}
{{end}}{{$l}}{{end}}

[섹션 수]
총 {{.SectionCount}}개의 섹션을 생성하세요.

[출력 형식]
아래 JSON 형식으로 정확하게 출력하세요. 다른 텍스트 없이 JSON만 출력하세요.

{
  "content": [
    {
      "type": "섹션타입",
      "props": {
        "id": "고유ID",
        "title": "섹션 제목",
        "subtitle": "부제목",
        "description": "상세 설명",
        "ctaText": "CTA 버튼 텍스트 (있는 경우)",
        "items": [
          { "title": "항목 제목", "description": "항목 설명", "icon": "아이콘명" }
        ],
        "backgroundColor": "#hex색상코드",
        "textColor": "#hex색상코드",
        "imagePrompt": "이 섹션에 들어갈 이미지를 설명하는 영어 프롬프트 (구체적이고 상세하게)",
        "layout": "left-image | right-image | center | full-width | grid | split"
      }
    }
  ],
  "root": {
    "props": {
      "title": "페이지 제목"
    }
  },
  "theme": {
    "primaryColor": "#hex",
    "secondaryColor": "#hex",
    "accentColor": "#hex",
    "fontFamily": "Pretendard"
  }
}

[사용 가능한 섹션 타입]
{{join .OfferedTypes ", "}}

[중요 규칙]
1. 반드시 첫 섹션은 Hero 타입이어야 합니다.
2. 반드시 마지막 섹션은 CTA 타입이어야 합니다.
3. 각 섹션의 카피는 입력 정보를 기반으로 구체적이고 설득력 있게 작성하세요.
4. imagePrompt는 반드시 영어로 작성하고, 상세하게 묘사하세요 (색상, 구도, 분위기, 스타일 포함).
5. backgroundColor는 각 섹션마다 다르게 설정하여 시각적 다양성을 주세요.
6. layout은 섹션별로 적절하게 다양하게 배치하세요.
7. 한국어로 카피를 작성하세요.
8. items 배열은 3~6개의 항목을 포함하세요.`

const imageTemplate = `Create a high-quality, professional {{.Category}} detail page section image.
Section type: {{.SectionType}}
Section title: {{.SectionTitle}}
Image description: {{.Directive}}

Style requirements:
- Clean, modern, professional design
- Suitable for a Korean commercial detail page
- High contrast, vibrant colors
- No text overlays (text will be added separately)
- Photorealistic quality
- 16:9 aspect ratio`

const vibeTemplate = `당신은 웹 페이지 디자인 수정 전문가입니다.

사용자가 현재 페이지에 대해 수정을 요청했습니다.

[사용자 요청]
{{.Message}}

[현재 페이지 데이터]
{{.DocumentJSON}}

[지시사항]
1. 사용자의 요청을 반영하여 수정된 페이지 데이터를 출력하세요
2. 기존 구조를 최대한 유지하면서 요청된 부분만 수정하세요
3. 각 컴포넌트의 id는 변경하지 마세요
4. JSON 형식으로만 출력하세요 (다른 텍스트 없이)
5. 변경 요약을 "changes_summary" 필드에 한국어로 포함하세요

출력 형식:
{
  "puckData": { 수정된 content와 root },
  "changes_summary": "변경 사항 요약"
}`
