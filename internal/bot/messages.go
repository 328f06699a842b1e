package bot

// User-facing texts. /start and /help carry English, Khmer and Chinese since
// that is where most of the bot's users are.

const startText = `Hi! Send me a song name or artist in any language and I'll find it for you.
សួស្តី! ផ្ញើឈ្មោះបទចម្រៀង ឬឈ្មោះអ្នកចម្រៀងមកខ្ញុំ ខ្ញុំនឹងរកឱ្យ។
你好！发送歌名或歌手名，我来帮你找歌。

Send /help for more.`

const helpText = `How to use:
1. Send a song name, artist, or any search text (at least 2 characters).
2. Pick a result from the buttons.
3. Wait for the MP3.

របៀបប្រើ:
1. ផ្ញើឈ្មោះបទចម្រៀង ឬអ្នកចម្រៀង (យ៉ាងតិច 2 តួអក្សរ)។
2. ចុចប៊ូតុងជ្រើសរើសបទ។
3. រង់ចាំឯកសារ MP3។

使用方法:
1. 发送歌名或歌手名（至少 2 个字符）。
2. 点击按钮选择歌曲。
3. 等待 MP3 发送。`

const (
	msgSearching        = "Searching… 🔍"
	msgQueryTooShort    = "Please send at least 2 characters to search."
	msgSearchUnavailable = "Search is unavailable right now, please try again later."
	msgNoResults        = "No results found. Try different keywords."
	msgDownloadingFmt   = "Downloading: %s ⏬"
	msgDownloadFailed   = "Sorry, that track could not be downloaded. Try another result."
	msgSendFailed       = "The download finished but sending failed. Please try again."
	msgSessionExpired   = "That list has expired. Send your search again."
	msgSelectionInvalid = "That button no longer matches a result. Send your search again."
	msgTooBusy          = "Too many downloads are running. Please try again in a moment."
)
