package composer

// draftPrompt asks for a post as JSON. Arguments: community, topic,
// minimum body length.
const draftPrompt = "Generate a Reddit post for r/%[1]s about '%[2]s'. " +
	"Create a catchy title (50-100 chars) and a detailed body (at least %[3]d chars). " +
	"Match the subreddit's tone: conversational and entrepreneurial for startups, technical for redditdev. " +
	"Include specific examples or use cases (e.g., for AI agents, mention automation or research tools). " +
	"Do not promote products or services. " +
	"End with an engaging question to spark discussion. " +
	"Include '(i will not promote)' in the title if required. " +
	"Return only valid JSON wrapped in a code block, like this:\n" +
	"```json\n{\"title\": \"AI Agents: Startup Impact? (i will not promote)\", \"text\": \"AI agents are transforming startups...\"}\n```" +
	"\nDo not include any text outside the JSON code block."

const (
	fallbackTitle = "%s Insights? (i will not promote)"

	// Arguments: topic, community.
	fallbackText = "Exploring %[1]s in %[2]s. For example, a SaaS startup could use AI agents to automate 80%% of customer support, saving hours. " +
		"Or analyze market trends for e-commerce, spotting demand spikes. But setup costs (~$10k) and integration complexity are hurdles. " +
		"What are your experiences with %[1]s in %[2]s? Worth it? Let's discuss! (i will not promote)"
)
