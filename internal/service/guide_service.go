package service

import (
	"errors"

	"in8/internal/model"
)

// ErrUnknownConstitution is returned for a guide request outside the eight constitutions
var ErrUnknownConstitution = errors.New("unknown constitution")

var constitutionGuides = map[model.ConstitutionName]model.ConstitutionGuide{
	model.WoodYang: {
		Description:  "목양 체질은 간 기능이 강하고 폐 기능이 약한 체질입니다.",
		GoodFoods:    []string{"소고기", "돼지고기", "닭고기", "조개류", "굴", "우유", "치즈", "요구르트"},
		BadFoods:     []string{"현미", "잡곡", "채소 과다 섭취", "밀가루 음식"},
		GoodExercise: []string{"축구", "농구", "테니스", "근력 운동", "활동적인 스포츠"},
	},
	model.WoodYin: {
		Description:  "목음 체질은 간 기능이 강하고 폐 기능이 약한 체질입니다.",
		GoodFoods:    []string{"소고기", "닭고기", "야채 적당량", "유제품"},
		BadFoods:     []string{"생선류", "해물류 과다 섭취", "찬 음식"},
		GoodExercise: []string{"조깅", "수영", "요가", "필라테스", "규칙적인 운동"},
	},
	model.MetalYang: {
		Description:  "금양 체질은 폐 기능이 강하고 간 기능이 약한 체질입니다.",
		GoodFoods:    []string{"녹황색 채소", "사과", "배", "감", "현미", "잡곡", "콩류", "두부"},
		BadFoods:     []string{"육식 과다 섭취", "기름진 음식", "매운 음식"},
		GoodExercise: []string{"산책", "등산", "요가", "명상", "과격하지 않은 운동"},
	},
	model.MetalYin: {
		Description:  "금음 체질은 폐 기능이 강하고 간 기능이 약한 체질입니다.",
		GoodFoods:    []string{"녹황색 채소", "각종 과일", "흰살 생선", "해물류"},
		BadFoods:     []string{"육식", "자극적인 음식", "인스턴트 식품"},
		GoodExercise: []string{"산책", "걷기", "스트레칭", "요가", "호흡 운동"},
	},
	model.EarthYang: {
		Description:  "토양 체질은 췌장 기능이 강하고 신장 기능이 약한 체질입니다.",
		GoodFoods:    []string{"현미", "보리", "잡곡", "각종 채소", "사과", "배", "콩류", "두부"},
		BadFoods:     []string{"육식 과다 섭취", "생선류", "기름진 음식"},
		GoodExercise: []string{"걷기", "자전거", "등산", "하이킹", "규칙적인 운동"},
	},
	model.EarthYin: {
		Description:  "토음 체질은 췌장 기능이 강하고 신장 기능이 약한 체질입니다.",
		GoodFoods:    []string{"현미", "잡곡", "다양한 채소", "조개류", "콩류"},
		BadFoods:     []string{"육식", "자극적인 음식", "찬 음식"},
		GoodExercise: []string{"산책", "요가", "스트레칭", "과격하지 않은 운동"},
	},
	model.WaterYang: {
		Description:  "수양 체질은 신장 기능이 강하고 췌장 기능이 약한 체질입니다.",
		GoodFoods:    []string{"등푸른 생선", "새우", "게", "조개", "미역", "김", "해조류"},
		BadFoods:     []string{"채소 과다 섭취", "곡식 과다 섭취", "밀가루 음식"},
		GoodExercise: []string{"수영", "수중 운동", "격렬한 운동", "활동적인 스포츠"},
	},
	model.WaterYin: {
		Description:  "수음 체질은 신장 기능이 강하고 췌장 기능이 약한 체질입니다.",
		GoodFoods:    []string{"각종 생선", "해물류", "육식 적당량", "해조류"},
		BadFoods:     []string{"채소", "과일 과다 섭취", "찬 음식"},
		GoodExercise: []string{"조깅", "수영", "규칙적인 운동", "적당한 강도의 운동"},
	},
}

// GuideService serves the static diet and exercise guidance
type GuideService struct{}

// NewGuideService creates a new guide service
func NewGuideService() *GuideService {
	return &GuideService{}
}

// Guide returns the guidance for one constitution
func (s *GuideService) Guide(name model.ConstitutionName) (*model.ConstitutionGuide, error) {
	g, ok := constitutionGuides[name]
	if !ok {
		return nil, ErrUnknownConstitution
	}
	g.Constitution = name
	g.GoodFoods = append([]string(nil), g.GoodFoods...)
	g.BadFoods = append([]string(nil), g.BadFoods...)
	g.GoodExercise = append([]string(nil), g.GoodExercise...)
	return &g, nil
}

// ForResult returns the guidance for a result's top constitution
func (s *GuideService) ForResult(res *model.RankedResult) (*model.ConstitutionGuide, error) {
	if res == nil {
		return nil, ErrUnknownConstitution
	}
	return s.Guide(res.TopConstitution.Constitution)
}
