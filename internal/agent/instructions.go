package agent

import "fmt"

const searchInstructions = `To get more results, use: 'search for <topic> in <subreddit> limit <number>'
To reply to a post, use: 'reply to post <Post ID> with <text>'
To reply to every result above, use: 'reply to all with <text>'
To generate a post, use: 'generate post for <subreddit> about <topic>'
To post a generated post, use: 'post generated for <subreddit> with title <title> text: <text>'
Other prompts:
- Post: 'post to <subreddit> with title <title> text: <text>'
- Link: 'post to <subreddit> with title <title> url: <url>'
- Poll: 'post to <subreddit> with poll title <title> options <opt1>,<opt2> duration <days>'
- Schedule: 'schedule posts every <minutes> minutes'
- Schedule generated: 'schedule generated post for <subreddit> about <topic> every <minutes> minutes'`

func previewInstructions(community, title, text string) string {
	return fmt.Sprintf(`Review the generated post above. To post it, use:
'post generated for %s with title %s text: %s'
To edit, modify the title/text and use the post command. To cancel, do nothing.`, community, title, text)
}
