// Package modakit 是一个时尚电商推荐与穿搭合成工具包。
//
// 设计要点：
// - Strategy-first: 三种可互换打分策略（embedding / hybrid / content）实现同一契约
// - Pipeline-first: 过滤、个性化调权、重排通过 Node 串联，可配置驱动
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测
// - 有界训练: 候选图/矩阵构建受节点上限与分批约束，产物持久化并支持增量合并
package modakit

import "github.com/rushteam/modakit/pipeline"

// 轻量 facade：便于用户直接 import "modakit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindScore       = pipeline.KindScore
	KindFilter      = pipeline.KindFilter
	KindPersonalize = pipeline.KindPersonalize
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
