// Package subagent runs nested agent loops on behalf of a parent agent.
//
// A [Spawner] derives a subagent from its parent: the parent's tools
// (filtered), its driver and its model configuration. The nested loop runs to
// completion inside the parent's tool call, so the parent never sees it
// interleave with its own steps.
//
// Subagents cannot spawn subagents. The names [ToolName] and [SpawnToolName]
// are removed from every subagent tool set after allow-list filtering, which
// bounds nesting at one level without a depth counter.
//
// [UsePlanningSubagent] packages the [PlanningTool] as an agent capability.
package subagent
