// Package session keeps agent states between loop runs.
//
// An [AgentSession] wraps an agent state with an id, a status and a version.
// Callers change sessions through [Action] values (budget, system prompt,
// metadata, task list, suspension) executed by a [Manager], which loads the
// session, applies the action and saves it with an optimistic version check.
//
//	manager := session.NewManager(session.NewMemoryStore())
//	s, _ := manager.Create(ctx, "review", initial)
//	s, _ = manager.Run(ctx, s.ID(), loop)
//	if s.State().Status() == gentloop.StatusSuspended {
//	    s, _ = manager.Execute(ctx, s.ID(), session.ChangeBudget(bigger))
//	    s, _ = manager.Run(ctx, s.ID(), loop)
//	}
package session
