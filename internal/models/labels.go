package models

// Label is presentation metadata for an enum variant.
type Label struct {
	Title    string `json:"title"`
	TitleKey string `json:"titleKey"`
	Icon     string `json:"icon,omitempty"`
}

// TypeLabels maps each ModelType to its display metadata.
var TypeLabels = map[ModelType]Label{
	ModelTypeChat:  {Title: "Chat", TitleKey: "模型类型.对话", Icon: "bubble.left.and.bubble.right"},
	ModelTypeCode:  {Title: "Code", TitleKey: "模型类型.编码", Icon: "chevron.left.forwardslash.chevron.right"},
	ModelTypeImage: {Title: "Image", TitleKey: "模型类型.生图", Icon: "photo"},
	ModelTypeVideo: {Title: "Video", TitleKey: "模型类型.视频", Icon: "video"},
	ModelTypeVoice: {Title: "Voice", TitleKey: "模型类型.语音", Icon: "waveform"},
}

// VendorLabels maps each ModelVendor to its display metadata.
var VendorLabels = map[ModelVendor]Label{
	VendorOpenAI:     {Title: "OpenAI", TitleKey: "供应商.OpenAI"},
	VendorAnthropic:  {Title: "Anthropic (Claude)", TitleKey: "供应商.Anthropic"},
	VendorGoogle:     {Title: "Google (Gemini)", TitleKey: "供应商.Google"},
	VendorMoonshot:   {Title: "Moonshot (Kimi)", TitleKey: "供应商.Moonshot"},
	VendorVolcengine: {Title: "Volcengine (豆包)", TitleKey: "供应商.Volcengine"},
	VendorAlibaba:    {Title: "Alibaba (通义)", TitleKey: "供应商.Alibaba"},
	VendorBaidu:      {Title: "Baidu (文心)", TitleKey: "供应商.Baidu"},
	VendorTencent:    {Title: "Tencent (混元)", TitleKey: "供应商.Tencent"},
	VendorCustom:     {Title: "Custom", TitleKey: "供应商.自定义"},
}

// TagColors are the preset tag colors offered when creating a tag.
var TagColors = []string{"red", "orange", "yellow", "green", "teal", "blue", "indigo", "purple"}
