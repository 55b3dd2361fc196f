package escalation

import "time"

// DefaultStages fire at 3s, 6s and 10s of continuous contact.
func DefaultStages() []Stage {
	return []Stage{
		{After: 3 * time.Second, Severity: SeverityMild},
		{After: 6 * time.Second, Severity: SeverityAngry},
		{After: 10 * time.Second, Severity: SeverityTerminal},
	}
}

// DefaultCatalog returns the built-in alert messages.
func DefaultCatalog() Catalog {
	return Catalog{
		SeverityMild: {
			"Hands near your face! Please stop.",
			"Avoid touching your face or neck.",
			"Reminder: Keep your hands away!",
			"Hands off your face for your health!",
			"Be mindful: hands near face detected!",
		},
		SeverityAngry: {
			"Stop! Don't touch your face or neck!",
			"Seriously, hands down. Now.",
			"Still touching your face. Move your hands!",
			"That's long enough. Hands away from your face!",
		},
		SeverityTerminal: {
			"HANDS OFF. You've been touching your face for ten seconds.",
			"Enough! Put your hands on the desk.",
			"Final warning: get your hands away from your face.",
		},
	}
}

// DefaultPolicy returns the default stages and catalog with the process-wide generator.
func DefaultPolicy() Policy {
	return Policy{
		Stages:  DefaultStages(),
		Catalog: DefaultCatalog(),
	}
}
