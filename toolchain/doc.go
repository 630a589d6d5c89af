// Package toolchain holds the tool catalogue of an agent and turns driver
// decisions into validated tool calls.
//
// # Overview
//
// Three pieces live here:
//
//   - [Registry]: an ordered, name-unique, immutable set of tools with
//     allow-list filtering, first-wins merging and removal.
//   - [Builder]: the tool-call builder. Given a Decision it emits zero or one
//     [gentloop.ToolCall] whose arguments passed schema validation and were
//     normalized with [schema.Normalize].
//   - [FunctionTool]: a tool backed by a plain function, plus [NewToolFunc]
//     for functions with a typed input struct.
//
// # Argument Flow
//
//	Decision.Args -> string keys only -> Validate -> drop positional -> Normalize -> ToolCall.Args
//
// Validation runs on the model's raw proposal. A proposal that fails it
// produces no call; the loop decides what to do with the rejection.
//
// Normalization coerces values to the declared property types, so a model
// that sends 20.0 for an integer property hands the tool an int:
//
//	Call("read_file", {"path": "a.txt", "lines": 20.0, "junk": null})
//	    -> ToolCall{Name: "read_file", Args: {"path": "a.txt", "lines": 20}}
//
// # Typed Inputs
//
// [NewToolFunc] decodes normalized arguments into a struct. time.Time fields
// accept the usual date layouts and time.Duration fields accept strings such
// as "1h30m":
//
//	type ScheduleInput struct {
//	    EventName string        `json:"event_name"`
//	    StartTime time.Time     `json:"start_time"`
//	    Duration  time.Duration `json:"duration"`
//	}
//
//	tool := toolchain.NewToolFunc(
//	    "schedule_event",
//	    "Schedule an event",
//	    schema.Object(map[string]*schema.Property{
//	        "event_name": schema.String("Name of the event"),
//	        "start_time": schema.String("Start time (ISO 8601 format)"),
//	        "duration":   schema.String("Duration (e.g., '1h30m')"),
//	    }, "event_name", "start_time", "duration"),
//	    func(ctx context.Context, input ScheduleInput) (string, error) {
//	        return "scheduled", nil
//	    },
//	)
package toolchain
