package components

// DataType identifies a biological measurement feed.
type DataType uint8

const (
	DataBiomass DataType = iota
	DataHeight
	DataMoisture
	DataTemperature
	DataPH
	DataNutrientLevel
	DataLightExposure
	DataCO2Level
	DataHumidity
	DataMicrobialActivity
)

var dataTypeNames = []string{
	"biomass", "height", "moisture", "temperature", "ph",
	"nutrient_level", "light_exposure", "co2_level", "humidity", "microbial_activity",
}

func (d DataType) String() string {
	if int(d) < len(dataTypeNames) {
		return dataTypeNames[d]
	}
	return "unknown"
}

// DataTypeByName resolves a config name to a DataType.
func DataTypeByName(name string) (DataType, bool) {
	for i, n := range dataTypeNames {
		if n == name {
			return DataType(i), true
		}
	}
	return 0, false
}

// DataTypeCount is the number of measurement feeds.
const DataTypeCount = int(DataMicrobialActivity) + 1

// DataStatus is the validation lifecycle of a submitted data point.
type DataStatus string

const (
	DataPending   DataStatus = "pending"
	DataValidated DataStatus = "validated"
	DataRejected  DataStatus = "rejected"
	DataExpired   DataStatus = "expired"
)

// IsFinalStatus reports whether a data point can no longer change status.
func IsFinalStatus(s DataStatus) bool {
	return s == DataValidated || s == DataRejected || s == DataExpired
}

// DataPoint is one externally submitted measurement.
type DataPoint struct {
	ID             uint64
	OrganismID     uint64
	Type           DataType
	Value          int64
	SubmissionTick uint64
	Provider       string
	Confidence     uint64 // 0..10000, running average of approving votes
	Status         DataStatus
	ProofHash      string
}

// ValidationRequest tracks the voting round for one pending data point.
type ValidationRequest struct {
	DataPointID  uint64
	RequiredVotes int
	DeadlineTick uint64
	Votes        map[string]bool // validator -> approve
	Approvals    int
	Rejections   int
}

// Validator is a registered stake-weighted validator.
type Validator struct {
	Address              string
	Stake                uint64
	Reputation           uint64 // 0..10000, starts at 5000
	RewardBalance        uint64
	TotalValidations     uint64
	CorrectValidations   uint64
	IncorrectValidations uint64
	LastActiveTick       uint64
	Active               bool
}

// FeedConfig bounds acceptable values for one data type and sets the
// anomaly threshold against the rolling history.
type FeedConfig struct {
	Type                 DataType
	Min                  int64
	Max                  int64
	DeviationThresholdBP uint64
}
