package models

import "time"

// Agency is an organizational code, used both as a record field and as a notification target.
type Agency string

const (
	AgencyNIS  Agency = "NIS"
	AgencyDCI  Agency = "DCI"
	AgencyKDF  Agency = "KDF"
	AgencyACA  Agency = "ACA"
	AgencyKRA  Agency = "KRA"
	AgencyKEBS Agency = "KEBS"
	AgencyKPS  Agency = "KPS"
	AgencyFRC  Agency = "FRC"
	AgencyEACC Agency = "EACC"
)

// Classification is the ordinal sensitivity of a record, and the clearance of a user.
type Classification string

const (
	Unclassified Classification = "UNCLASSIFIED"
	Restricted   Classification = "RESTRICTED"
	Confidential Classification = "CONFIDENTIAL"
	Secret       Classification = "SECRET"
)

// ThreatLevel is the derived severity tier of a report or alert.
type ThreatLevel string

const (
	ThreatLow      ThreatLevel = "LOW"
	ThreatMedium   ThreatLevel = "MEDIUM"
	ThreatHigh     ThreatLevel = "HIGH"
	ThreatCritical ThreatLevel = "CRITICAL"
)

// DataType is the intelligence discipline a report came from.
type DataType string

const (
	HUMINT DataType = "HUMINT"
	SIGINT DataType = "SIGINT"
	OSINT  DataType = "OSINT"
	GEOINT DataType = "GEOINT"
	FININT DataType = "FININT"
	CYBINT DataType = "CYBINT"
)

type ReportStatus string

const (
	ReportActive     ReportStatus = "ACTIVE"
	ReportArchived   ReportStatus = "ARCHIVED"
	ReportClassified ReportStatus = "CLASSIFIED"
)

// AlertStatus moves one way: sent -> acknowledged -> resolved.
type AlertStatus string

const (
	AlertSent         AlertStatus = "sent"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// Location pins a record to a county and coordinates.
type Location struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	County       string  `json:"county"`
	Constituency string  `json:"constituency,omitempty"`
}

// Report is a submitted intelligence report. ThreatLevel is always derived server side.
type Report struct {
	ID                string         `json:"id"`
	Agency            Agency         `json:"agency"`
	Classification    Classification `json:"classification"`
	DataType          DataType       `json:"data_type"`
	Category          string         `json:"threat_category"`
	Title             string         `json:"title"`
	Content           string         `json:"content"`
	Location          *Location      `json:"location,omitempty"`
	ConfidenceScore   float64        `json:"confidence_score"`
	SourceReliability string         `json:"source_reliability"`
	CorrelationTags   []string       `json:"correlation_tags"`
	ThreatLevel       ThreatLevel    `json:"threat_level"`
	CreatedAt         time.Time      `json:"created_at"`
	CreatedBy         string         `json:"created_by"`
	Status            ReportStatus   `json:"status"`
}

// County returns the report's county or "" when it has no location.
func (r Report) County() string {
	if r.Location == nil {
		return ""
	}
	return r.Location.County
}

// Alert is a threat alert pushed to agencies and live subscribers.
type Alert struct {
	ID                     string      `json:"id"`
	ThreatLevel            ThreatLevel `json:"threat_level"`
	Title                  string      `json:"title"`
	Description            string      `json:"description"`
	AgenciesNotified       []string    `json:"agencies_notified"`
	Location               *Location   `json:"location,omitempty"`
	RecommendedActions     []string    `json:"recommended_actions"`
	Status                 AlertStatus `json:"status"`
	CreatedAt              time.Time   `json:"created_at"`
	ExpiresAt              *time.Time  `json:"expires_at,omitempty"`
	RelatedIntelligenceIDs []string    `json:"related_intelligence_ids"`
	EstimatedImpact        int64       `json:"estimated_impact_kes"`
	AcknowledgedBy         string      `json:"acknowledged_by,omitempty"`
	AcknowledgedAt         *time.Time  `json:"acknowledged_at,omitempty"`
	ResponseNotes          string      `json:"response_notes,omitempty"`
}

// Correlation is a synthetic link between reports. It is not computed from report contents.
type Correlation struct {
	ID                 string      `json:"id"`
	PrimaryID          string      `json:"primary_intelligence_id"`
	CorrelatedIDs      []string    `json:"correlated_intelligence_ids"`
	Type               string      `json:"correlation_type"`
	Score              float64     `json:"correlation_score"`
	Method             string      `json:"correlation_method"`
	ThreatLevel        ThreatLevel `json:"threat_level"`
	PredictedImpact    int64       `json:"predicted_impact_kes"`
	RecommendedActions []string    `json:"recommended_actions"`
	AgenciesToNotify   []string    `json:"agencies_to_notify"`
	CreatedAt          time.Time   `json:"created_at"`
	Synthetic          bool        `json:"synthetic"`
}

// PredictedLocation is where a prediction expects activity.
type PredictedLocation struct {
	County             string     `json:"county"`
	Coordinates        [2]float64 `json:"coordinates"`
	ConfidenceRadiusKm float64    `json:"confidence_radius_km"`
}

// PredictionFeatures are the canned input weights reported with a prediction.
type PredictionFeatures struct {
	HistoricalPatterns  float64 `json:"historical_patterns"`
	SeasonalFactors     float64 `json:"seasonal_factors"`
	EconomicIndicators  float64 `json:"economic_indicators"`
	SocialTensionIndex  float64 `json:"social_tension_index"`
	CrossBorderActivity float64 `json:"cross_border_activity"`
}

// Prediction is a synthetic threat prediction. It carries the highest
// classification among the reports it was derived from.
type Prediction struct {
	ID                string             `json:"id"`
	ThreatType        string             `json:"threat_type"`
	PredictedLocation PredictedLocation  `json:"predicted_location"`
	Confidence        float64            `json:"prediction_confidence"`
	Timeframe         string             `json:"predicted_timeframe"`
	PredictedImpact   int64              `json:"predicted_impact_kes"`
	ModelVersion      string             `json:"model_version"`
	Classification    Classification     `json:"classification_level"`
	InputFeatures     PredictionFeatures `json:"input_features"`
	Status            string             `json:"status"`
	CreatedAt         time.Time          `json:"created_at"`
	LastUpdated       time.Time          `json:"last_updated"`
	Synthetic         bool               `json:"synthetic"`
}

type NetworkEntity struct {
	EntityID        string  `json:"entity_id"`
	EntityType      string  `json:"entity_type"`
	Name            string  `json:"name"`
	CentralityScore float64 `json:"centrality_score"`
	ThreatLevel     string  `json:"threat_level"`
	Connections     int     `json:"connections"`
}

type NetworkLink struct {
	SourceID       string  `json:"source_id"`
	TargetID       string  `json:"target_id"`
	ConnectionType string  `json:"connection_type"`
	Strength       float64 `json:"strength"`
	EvidenceCount  int     `json:"evidence_count"`
}

// NetworkAnalysis is a canned network picture returned by network/comprehensive analyses.
type NetworkAnalysis struct {
	NetworkID            string          `json:"network_id"`
	NetworkType          string          `json:"network_type"`
	KeyEntities          []NetworkEntity `json:"key_entities"`
	Connections          []NetworkLink   `json:"connections"`
	EstimatedValue       int64           `json:"estimated_value_kes"`
	AgenciesTracking     []string        `json:"agencies_tracking"`
	VulnerabilityPoints  []string        `json:"vulnerability_points"`
	DisruptionStrategies []string        `json:"disruption_strategies"`
	Synthetic            bool            `json:"synthetic"`
}

// User is an account that can log in. The access gate only ever reads it.
type User struct {
	ID             string         `json:"id" yaml:"id"`
	Username       string         `json:"username" yaml:"username"`
	Email          string         `json:"email" yaml:"email"`
	Agency         Agency         `json:"agency" yaml:"agency"`
	ClearanceLevel Classification `json:"clearance_level" yaml:"clearance_level"`
	Role           string         `json:"role" yaml:"role"`
	IsActive       bool           `json:"is_active" yaml:"is_active"`
	PasswordHash   string         `json:"-" yaml:"password_hash"`
}

// Digest is a periodic situation summary sent to the notification channels.
type Digest struct {
	GeneratedAt  time.Time      `json:"generated_at"`
	Period       string         `json:"period"`
	TotalReports int            `json:"total_reports"`
	TotalAlerts  int            `json:"total_alerts"`
	ByLevel      map[string]int `json:"by_threat_level"`
	ByAgency     map[string]int `json:"by_agency"`
	ByCategory   map[string]int `json:"by_category"`
	TopAlerts    []Alert        `json:"top_alerts"`
}

// FeedItem is one entry pulled from an open-source JSON feed. Confidence is
// nil when the feed does not supply one.
type FeedItem struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Category    string    `json:"category"`
	County      string    `json:"county"`
	Confidence  *float64  `json:"confidence"`
	PublishedAt time.Time `json:"published_at"`
}
