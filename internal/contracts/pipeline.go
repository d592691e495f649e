package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 메트릭, 결과 row에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0 → S1 → S2 → S3
//   Cache  Align  Factors  Scoring

// Stage represents a pipeline stage
type Stage string

const (
	// StageCache S0: 가격 시계열 캐시 확인/갱신
	// 위치: internal/pricecache/
	StageCache Stage = "S0_CACHE"

	// StageAlign S1: 공통 날짜 교집합 정렬
	// 위치: internal/factors/align.go
	StageAlign Stage = "S1_ALIGN"

	// StageFactors S2: 변동성/MDD/Sharpe/Beta/R² 계산
	// 위치: internal/factors/engine.go
	StageFactors Stage = "S2_FACTORS"

	// StageScoring S3: 정규화, 가중치, 순위
	// 위치: internal/scoring/
	StageScoring Stage = "S3_SCORING"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StageCache:
		return "S0"
	case StageAlign:
		return "S1"
	case StageFactors:
		return "S2"
	case StageScoring:
		return "S3"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageCache:
		return "가격 캐시 확인/갱신"
	case StageAlign:
		return "날짜 정렬"
	case StageFactors:
		return "팩터 계산"
	case StageScoring:
		return "점수/순위"
	default:
		return "알 수 없음"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{StageCache, StageAlign, StageFactors, StageScoring}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// StageResult records one stage of a comparison run
type StageResult struct {
	Stage       Stage  `json:"stage"`
	InputCount  int    `json:"input_count"`
	OutputCount int    `json:"output_count"`
	Duration    int64  `json:"duration_ms"`
	Note        string `json:"note,omitempty"`
}
