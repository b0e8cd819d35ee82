package domain

// ClassifyPrompt is the default remote classifier instruction set.
// The single %s placeholder receives the truncated message body.
// The answer tokens must stay in sync with the parse in
// services.ParseCategoryToken.
const ClassifyPrompt = `You classify Discord messages. Judge the CONTEXT and the INTENT.

IMPORTANT RULES:
- Casual exclamations and swearing (holy shit, damn, wtf) = CONVERSATIONS, not inappropriate
- Video game prices, game shop stock, bot output (Mudae and the like) = COMMANDS, NEVER personal info
- Discord usernames and game character names = NOT personal info
- PERSONAL_INFO = ONLY when someone shares their OWN real details: personal email, real phone number, home address, date of birth, password

Categories:
- IMAGES: talks about images, photos, screenshots
- VIDEOS: talks about videos, clips, streams
- COMMANDS: bot messages, commands, bot replies, game shop stock, roll results
- PERSONAL_INFO: ONLY real personal details shared on purpose (email, phone, address, password)
- INAPPROPRIATE: DIRECT insult, harassment, threats, explicit sexual content, racist remarks
- LINKS: contains or talks about links/URLs
- FILES: talks about files, documents
- CONVERSATIONS: normal discussion, everything else

Message: "%s"

ONE WORD ONLY: IMAGES, VIDEOS, COMMANDS, PERSONAL_INFO, INAPPROPRIATE, LINKS, FILES or CONVERSATIONS`
