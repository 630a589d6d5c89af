// Package compaction keeps an agent's conversation short between steps.
//
// A [Strategy] rewrites the conversation of a state; a [Trigger] decides
// before each step whether to run it. [UseCompaction] installs both as a
// before-step hook on an agent.
//
// Steps stay in the state's history untouched: only the messages sent to the
// driver shrink, so budgets and step counts are unaffected.
//
// # Triggers
//
//   - [Always]
//   - [StepsSinceCompaction]: steps taken since the last compaction (delta)
//   - [LastInputTokens]: input tokens of the last step (absolute)
//   - [Any]: fires when one of its triggers fires
//
// # Strategies
//
//   - [SlidingWindow]: keeps the task and the last N steps
//   - [Summarization]: replaces older steps with a summary written by a
//     driver, keeping the last N steps
//
// The sliding window is cheap and keeps failures visible. Summarization
// costs a model call per compaction; pair it with a trigger that fires less
// often.
package compaction
