package core

import "universe-gateway/models"

// MockFeed 固定的兜底 Feed：坐标和图片预先分配，多次调用结果完全一致
// 每次返回新切片，调用方修改不会影响下一次
func MockFeed() []models.UniverseNode {
	return []models.UniverseNode{
		{
			ID:          "1",
			Title:       "Neon City Racing",
			Description: "Join the hyper-loop race with friends in real-time AR.",
			Type:        models.ContentMiniGame,
			Creator:     "CyberDrifter",
			Color:       "#06b6d4",
			Coordinates: models.Coordinates{X: -20, Y: 10, Z: 5},
			ImageURL:    "https://picsum.photos/400/300?random=1",
		},
		{
			ID:          "2",
			Title:       "Mars Colony 2045",
			Description: "An immersive memory capsule from the first settlers.",
			Type:        models.ContentImmersiveStory,
			Creator:     "SpaceX_Archive",
			Color:       "#ef4444",
			Coordinates: models.Coordinates{X: 20, Y: -15, Z: 0},
			ImageURL:    "https://picsum.photos/400/300?random=2",
		},
		{
			ID:          "3",
			Title:       "Zen Garden Collective",
			Description: "A shared meditation space that evolves with your stress levels.",
			Type:        models.ContentSocialEvent,
			Creator:     "MindfulnessAI",
			Color:       "#22c55e",
			Coordinates: models.Coordinates{X: 0, Y: 0, Z: 10},
			ImageURL:    "https://picsum.photos/400/300?random=3",
		},
	}
}

// MockCoCreation 远端调用失败时的降级结果
func MockCoCreation() models.GeneratedContent {
	return models.GeneratedContent{
		Title:            "Connection Lost",
		Content:          "Could not reach the AI core.",
		SuggestedVisuals: "Static noise",
	}
}

// UnconfiguredCoCreation 未配置凭证时的结果
func UnconfiguredCoCreation() models.GeneratedContent {
	return models.GeneratedContent{
		Title:            "Error",
		Content:          "No API Key",
		SuggestedVisuals: "None",
	}
}
