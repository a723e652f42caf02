package contracts

import "time"

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 메트릭, 이벤트에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S0_PRICES ─→ S1_RETURNS ─┐
//   S0_NEWS ─────────────────┼─→ S2_QUALITY ─→ S3_REPORT
//                            (S2 needs prices + returns, S3 needs everything)

// Stage represents a pipeline stage
type Stage string

const (
	// StagePrices S0: 가격 수집
	// 책임: 종목별 OHLCV 순차 수집, 재시도/백오프, 실패 격리
	// 위치: internal/s0_data/collector/prices.go
	StagePrices Stage = "S0_PRICES"

	// StageNews S0: 뉴스 수집
	// 책임: 종목별 뉴스 상위 K건 수집, 링크 중복 제거
	// 위치: internal/s0_data/collector/news.go
	StageNews Stage = "S0_NEWS"

	// StageReturns S1: 수익률 계산
	// 위치: internal/s1_returns/
	StageReturns Stage = "S1_RETURNS"

	// StageQuality S2: 품질 게이트
	// 책임: 5개 규칙 평가, 점수 산출, 통과 여부 판정
	// 위치: internal/s2_quality/
	StageQuality Stage = "S2_QUALITY"

	// StageReport S3: 리포트 조립
	// 책임: 요약 통계, Top N, 품질 정책(withhold/mark) 적용
	// 위치: internal/s3_report/
	StageReport Stage = "S3_REPORT"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S0", "S1")
func (s Stage) ShortName() string {
	switch s {
	case StagePrices, StageNews:
		return "S0"
	case StageReturns:
		return "S1"
	case StageQuality:
		return "S2"
	case StageReport:
		return "S3"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StagePrices:
		return "가격 수집"
	case StageNews:
		return "뉴스 수집"
	case StageReturns:
		return "수익률 계산"
	case StageQuality:
		return "품질 검증"
	case StageReport:
		return "리포트 조립"
	default:
		return "알 수 없음"
	}
}

// Dependencies returns the stages that must finish before s may start
func (s Stage) Dependencies() []Stage {
	switch s {
	case StageReturns:
		return []Stage{StagePrices}
	case StageQuality:
		return []Stage{StagePrices, StageReturns}
	case StageReport:
		return []Stage{StagePrices, StageNews, StageReturns, StageQuality}
	default:
		return nil
	}
}

// AllStages returns all pipeline stages in dependency order
func AllStages() []Stage {
	return []Stage{
		StagePrices,
		StageNews,
		StageReturns,
		StageQuality,
		StageReport,
	}
}

// PipelineResult represents the result of a pipeline stage execution
type PipelineResult struct {
	Stage       Stage                  `json:"stage"`
	Success     bool                   `json:"success"`
	InputCount  int                    `json:"input_count"`
	OutputCount int                    `json:"output_count"`
	StartedAt   time.Time              `json:"started_at"`
	Duration    int64                  `json:"duration_ms"`
	Error       string                 `json:"error,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
