package models

// KnownAgencies lists the agencies that may submit reports or hold accounts.
var KnownAgencies = []Agency{
	AgencyNIS, AgencyDCI, AgencyKDF, AgencyACA, AgencyKRA, AgencyKEBS, AgencyKPS, AgencyFRC,
}

func (a Agency) Valid() bool {
	for _, known := range KnownAgencies {
		if a == known {
			return true
		}
	}
	return false
}

func (c Classification) Valid() bool {
	switch c {
	case Unclassified, Restricted, Confidential, Secret:
		return true
	}
	return false
}

func (l ThreatLevel) Valid() bool {
	switch l {
	case ThreatLow, ThreatMedium, ThreatHigh, ThreatCritical:
		return true
	}
	return false
}

func (d DataType) Valid() bool {
	switch d {
	case HUMINT, SIGINT, OSINT, GEOINT, FININT, CYBINT:
		return true
	}
	return false
}

// ValidReliability reports whether r is a source reliability grade A through F.
func ValidReliability(r string) bool {
	return len(r) == 1 && r[0] >= 'A' && r[0] <= 'F'
}

// Notifiable reports whether a is a valid notification target. Oversight
// bodies such as EACC receive alerts but do not hold accounts.
func (a Agency) Notifiable() bool {
	return a.Valid() || a == AgencyEACC
}

// Severity orders threat levels from LOW (1) to CRITICAL (4). Unknown levels rank 0.
func (l ThreatLevel) Severity() int {
	switch l {
	case ThreatLow:
		return 1
	case ThreatMedium:
		return 2
	case ThreatHigh:
		return 3
	case ThreatCritical:
		return 4
	}
	return 0
}
