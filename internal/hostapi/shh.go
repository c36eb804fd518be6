package hostapi

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/vmrealm/agentrt/internal/classifier"
	"github.com/vmrealm/agentrt/internal/process"
	"github.com/vmrealm/agentrt/internal/registry"
	"github.com/vmrealm/agentrt/internal/rtmessage"
	"github.com/vmrealm/agentrt/internal/variant"
)

// guardedPrivMask is the "not Basic/Schema" forbid mask shared by every
// shh function that can drive another process (send/execute/timer),
// restricting script-level process control to Master/Slave/Agent/World/
// God callers.
const guardedPrivMask = process.PrivBasic | process.PrivSchema

func registerShh(reg *registry.Registry, hooks Hooks) error {
	mod, err := reg.RegisterModule("shh")
	if err != nil {
		return err
	}

	fns := []struct {
		name     string
		argTypes []registry.TypeID
		fn       registry.Callable
	}{
		{"ExecuteString", []registry.TypeID{tidString}, shhExecuteString(hooks)},
		{"ExecuteFile", []registry.TypeID{tidString}, shhExecuteFile(hooks)},
		{"SendMsg", []registry.TypeID{tidString, tidString}, shhSendMsg(hooks, false)},
		{"SendMsg", []registry.TypeID{tidString, tidString, tidDict}, shhSendMsg(hooks, true)},
		{"SetTimer", []registry.TypeID{tidDouble, tidString}, shhSetTimer(hooks)},
		{"StopTimer", []registry.TypeID{tidLong}, shhStopTimer(hooks)},
		{"YieldProcess", nil, shhYieldProcess},
		{"GetMsgScheduledTime", nil, shhGetMsgScheduledTime},
		{"GetMsgReceivedTime", nil, shhGetMsgReceivedTime},
		{"GetMsgDelta", nil, shhGetMsgDelta},
		{"DeepCopy", []registry.TypeID{tidDict}, shhDeepCopy},
		{"DeepCompare", []registry.TypeID{tidDict, tidDict}, shhDeepCompare},
		{"Trace", []registry.TypeID{tidString, tidString}, shhTrace},
		{"FilterTrace", []registry.TypeID{tidString}, shhFilterTrace},
		{"LogError", []registry.TypeID{tidString}, shhLogError},
		{"ErrorBox", []registry.TypeID{tidString}, shhErrorBox},
	}
	for _, f := range fns {
		if err := mod.AddFunction(f.name, f.argTypes, f.fn); err != nil {
			return fmt.Errorf("shh.%s: %w", f.name, err)
		}
	}
	return nil
}

// shhExecuteString runs an arbitrary snippet against the caller's own
// already-loaded runtime.
func shhExecuteString(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		p, err := caller("shh.ExecuteString")
		if err != nil {
			return nil, err
		}
		if err := forbid(p, guardedPrivMask, "shh.ExecuteString"); err != nil {
			return nil, err
		}
		eng, err := hooks.Engines.For(p.Implementation)
		if err != nil {
			return nil, err
		}
		results, err := eng.Eval(context.Background(), p, asVariant(args[0]).AsString())
		if err != nil {
			return nil, err
		}
		return ok(results...)
	}
}

// shhExecuteFile reads a script file through the path resolver's
// read-path allow-list and runs it against the caller's runtime.
func shhExecuteFile(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		p, err := caller("shh.ExecuteFile")
		if err != nil {
			return nil, err
		}
		if err := forbid(p, guardedPrivMask, "shh.ExecuteFile"); err != nil {
			return nil, err
		}
		if hooks.Resolver == nil {
			return nil, fmt.Errorf("hostapi: shh.ExecuteFile requires a path resolver")
		}
		path := asVariant(args[0]).AsString()
		expanded, err := hooks.Resolver.Expand(path)
		if err != nil {
			return nil, err
		}
		if err := hooks.Resolver.IsValidReadPath(expanded); err != nil {
			return nil, err
		}
		source, err := os.ReadFile(expanded)
		if err != nil {
			return nil, fmt.Errorf("reading script %q: %w", expanded, err)
		}
		eng, err := hooks.Engines.For(p.Implementation)
		if err != nil {
			return nil, err
		}
		results, err := eng.Eval(context.Background(), p, string(source))
		if err != nil {
			return nil, err
		}
		return ok(results...)
	}
}

// shhSendMsg resolves targetID against the caller's own VM
// (master or a registered slave) and runs functionName synchronously,
// driving a hand-built Message through its lifecycle states for
// observability. No scheduler.Receiver implementation exists to
// dispatch through yet, so this bypasses the Scheduler's pending queue
// entirely rather than enqueuing a Message nothing would ever pop.
func shhSendMsg(hooks Hooks, withArgs bool) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		p, err := caller("shh.SendMsg")
		if err != nil {
			return nil, err
		}
		if err := forbid(p, guardedPrivMask, "shh.SendMsg"); err != nil {
			return nil, err
		}
		env, err := callerEnvironment(p)
		if err != nil {
			return nil, err
		}

		targetID := asVariant(args[0]).AsString()
		functionName := asVariant(args[1]).AsString()

		var forwarded []variant.Variant
		if withArgs {
			if dict := asVariant(args[2]).AsDictionary(); dict != nil {
				dict.IterateInsertionOrder(func(_ variant.Key, v variant.Variant) bool {
					forwarded = append(forwarded, v)
					return true
				})
			}
		}

		target := env.VM.Slave(targetID)
		if target == nil {
			if master := env.VM.Master(); master != nil && master.ID == targetID {
				target = master
			}
		}
		if target == nil {
			return nil, fmt.Errorf("shh.SendMsg: no process %q in this vm", targetID)
		}

		eng, err := hooks.Engines.For(target.Implementation)
		if err != nil {
			return nil, err
		}

		msg := rtmessage.New(functionName, p, target, rtmessage.Synchronous, 0)
		now := env.Scheduler.CurrentUpdateTime()
		msg.MarkScheduled(now)
		msg.MarkReady()
		msg.MarkDispatched(now)

		results, callErr := eng.Call(context.Background(), target, functionName, forwarded)
		if callErr != nil {
			msg.MarkFailed(env.Scheduler.CurrentUpdateTime())
			return nil, callErr
		}
		msg.MarkCompleted(env.Scheduler.CurrentUpdateTime(), results)
		return ok(results...)
	}
}

// shhSetTimer enqueues a TimerMsg on the caller's own Scheduler and
// returns its Message id so the script can later StopTimer it.
func shhSetTimer(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		p, err := caller("shh.SetTimer")
		if err != nil {
			return nil, err
		}
		if err := forbid(p, guardedPrivMask, "shh.SetTimer"); err != nil {
			return nil, err
		}
		env, err := callerEnvironment(p)
		if err != nil {
			return nil, err
		}
		delay := asVariant(args[0]).AsFloat64()
		functionName := asVariant(args[1]).AsString()

		msg := rtmessage.New(functionName, p, p, rtmessage.TimerMsg, 0)
		msg.ScheduledTime = env.Scheduler.CurrentUpdateTime() + delay
		env.Scheduler.Enqueue(msg)
		return ok(variant.Long(int64(msg.ID)))
	}
}

func shhStopTimer(hooks Hooks) registry.Callable {
	return func(args []registry.Value) ([]registry.Value, error) {
		p, err := caller("shh.StopTimer")
		if err != nil {
			return nil, err
		}
		if err := forbid(p, guardedPrivMask, "shh.StopTimer"); err != nil {
			return nil, err
		}
		env, err := callerEnvironment(p)
		if err != nil {
			return nil, err
		}
		env.Scheduler.StopTimer(uint64(asVariant(args[0]).AsInt64()))
		return ok()
	}
}

func shhYieldProcess(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("shh.YieldProcess")
	if err != nil {
		return nil, err
	}
	if p.CurrentMessage != nil {
		p.CurrentMessage.MarkYielded()
	}
	return ok()
}

func shhGetMsgScheduledTime(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("shh.GetMsgScheduledTime")
	if err != nil {
		return nil, err
	}
	if p.CurrentMessage == nil {
		return ok(variant.Double(0))
	}
	return ok(variant.Double(p.CurrentMessage.ScheduledTime))
}

func shhGetMsgReceivedTime(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("shh.GetMsgReceivedTime")
	if err != nil {
		return nil, err
	}
	if p.CurrentMessage == nil {
		return ok(variant.Double(0))
	}
	return ok(variant.Double(p.CurrentMessage.ReceivedTime))
}

func shhGetMsgDelta(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("shh.GetMsgDelta")
	if err != nil {
		return nil, err
	}
	if p.CurrentMessage == nil {
		return ok(variant.Double(0))
	}
	m := p.CurrentMessage
	return ok(variant.Double(m.ReceivedTime - m.ScheduledTime))
}

func shhDeepCopy(args []registry.Value) ([]registry.Value, error) {
	return ok(asVariant(args[0]).DeepCopy())
}

func shhDeepCompare(args []registry.Value) ([]registry.Value, error) {
	return ok(variant.Bool(asVariant(args[0]).Equals(asVariant(args[1]))))
}

func shhTrace(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("shh.Trace")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	label := asVariant(args[0]).AsString()
	message := asVariant(args[1]).AsString()
	env.Log.Trace(env.TraceFilter(), classifier.New(label), "%s", message)
	return ok()
}

func shhFilterTrace(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("shh.FilterTrace")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	raw := asVariant(args[0]).AsString()
	if raw == "" {
		env.SetTraceFilter(nil)
		return ok()
	}
	env.SetTraceFilter(classifier.New(strings.Split(raw, ",")...))
	return ok()
}

func shhLogError(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("shh.LogError")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	env.Log.WithProcess(vmIDOf(p), p.ID).Error(asVariant(args[0]).AsString())
	return ok()
}

func shhErrorBox(args []registry.Value) ([]registry.Value, error) {
	p, err := caller("shh.ErrorBox")
	if err != nil {
		return nil, err
	}
	env, err := callerEnvironment(p)
	if err != nil {
		return nil, err
	}
	env.Log.WithProcess(vmIDOf(p), p.ID).WithField("error_box", true).Error(asVariant(args[0]).AsString())
	return ok()
}

func vmIDOf(p *process.Process) string {
	if p.VM == nil {
		return ""
	}
	return p.VM.VMID()
}
