package domain

// AppTitle はヘッダーに表示するタイトルです。
const AppTitle = "Robo AI - Wallpaper Generator"

// HelpStep は「How It Works」パネルの 1 手順です。
type HelpStep struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// HelpLink は外部ドキュメントへのリンクです。
type HelpLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

const (
	HelpTitle        = "How It Works"
	ErrorHeadline    = "Image Generation Failed"
	EmptyPlaceholder = "Your generated wallpapers will appear here."
	QuotaHelpTitle   = "This is likely due to API quota limits."
	QuotaHelpBody    = "This usually happens when billing is not enabled for the underlying Google Cloud project."
)

var helpSteps = []HelpStep{
	{
		Title: "Describe Your Vibe",
		Body:  `In the text box, type a description of the wallpaper you want. Be creative! Think about colors, subjects, and styles. For example, "A neon-lit cyberpunk city in the rain" or "A peaceful, misty forest at sunrise".`,
	},
	{
		Title: "Choose an Aspect Ratio",
		Body:  `Select the best size for your device. "9:16" is perfect for most phones.`,
	},
	{
		Title: "Generate!",
		Body:  `Hit the "Generate" button and watch the AI create four unique variations of your wallpaper concept.`,
	},
	{
		Title: "Preview, Download & Remix",
		Body:  `Click on any image to see it fullscreen. From there, you can download it to your device or click "Remix" to generate a new set of images inspired by the one you selected.`,
	},
}

var quotaHelpLinks = []HelpLink{
	{Label: "Learn about Billing", URL: "https://ai.google.dev/gemini-api/docs/billing"},
	{Label: "Monitor Usage", URL: "https://ai.dev/usage?tab=rate-limit"},
}

// HelpSteps はヘルプパネルの手順を返します。
func HelpSteps() []HelpStep {
	return append([]HelpStep(nil), helpSteps...)
}

// QuotaHelpLinks はクォータ超過時に表示するリンクを返します。
func QuotaHelpLinks() []HelpLink {
	return append([]HelpLink(nil), quotaHelpLinks...)
}
