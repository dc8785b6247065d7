package sched

import "kernel64/internal/proc"

// SwitchTo implements proc.Scheduler and spec.md §4.C's switch_to(p,
// eoi_flag):
//  1. (steps 1-3, address-space root / stack-segment / stack-pointer
//     installation) are the province of a real CPU; this hosted core
//     has no separate address space to swap, so they are no-ops here
//     beyond bookkeeping SavedPageRoot/SavedSS/SavedRSP, which Create
//     and HandleTick already populate.
//  2. unlink p from its ready queue (self-loop);
//  3. place the previously-running descriptor on its ready queue via
//     proc.Ready, unless it is ENDING (the trampoline path: an ending
//     descriptor must not be re-readied);
//  4. assign p as current;
//  5. refill p.Quantum from p.Priority;
//  6. if eoiFlag is set, issue end-of-interrupt for the timer line;
//  7. resume p's execution context and suspend the outgoing one.
func (s *State) SwitchTo(p *proc.Descriptor, eoiFlag bool) {
	s.mu.Lock()
	outgoing := s.current
	p.StatusLink.Unlink()
	log := s.log
	s.mu.Unlock()

	// Step 3: re-ready the outgoing descriptor before p becomes
	// current, so proc.Ready's priority comparison against
	// proc.Current() still sees the descriptor being switched away
	// from, not p — otherwise the comparison is against the wrong
	// side of the switch and only happens to come out right because
	// nothing here ever re-readies a descriptor outranking p.
	if outgoing != nil && outgoing != p && outgoing.Status != proc.Ending {
		proc.Ready(outgoing)
	}

	s.mu.Lock()
	s.current = p
	p.Status = proc.Running
	proc.ResetQuantum(p)
	if eoiFlag {
		s.controller.EOI(TimerVector)
	}
	s.mu.Unlock()

	if log != nil {
		from := "<none>"
		if outgoing != nil {
			from = outgoing.Name
		}
		log.Debugf("switch_to: %s -> %s (priority=%s eoi=%t)", from, p.Name, p.Priority, eoiFlag)
	}

	proc.NoteCurrent(p)

	s.platform.Resume(p)
	if outgoing != nil && outgoing != p {
		s.platform.Suspend(outgoing)
	}
}
