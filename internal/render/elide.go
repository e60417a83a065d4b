package render

// stepBudget is the number of lines given to each step group.
type stepBudget struct {
	Done, Running, Waiting             int
	HideDone, HideRunning, HideWaiting bool
}

// calculateSteps splits maxSteps display lines between the finished, running
// and waiting groups. Up to two lines each are kept for finished and waiting
// steps so that running steps cannot crowd them out. When the groups together
// reach maxSteps the allocations sum to exactly maxSteps.
func calculateSteps(done, running, waiting, maxSteps int) stepBudget {
	reserved := min(2, done) + min(2, waiting)
	showRunning := min(running, max(0, maxSteps-reserved))
	remaining := maxSteps - showRunning

	showWaiting := min(waiting, (remaining+1)/2)
	showDone := min(done, remaining-showWaiting)

	if leftover := remaining - showWaiting - showDone; leftover > 0 && showWaiting < waiting {
		showWaiting = min(waiting, showWaiting+leftover)
	}

	return stepBudget{
		Done:        showDone,
		Running:     showRunning,
		Waiting:     showWaiting,
		HideDone:    showDone < done,
		HideRunning: showRunning < running,
		HideWaiting: showWaiting < waiting,
	}
}
