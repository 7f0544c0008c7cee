// Package scorer 提供三种可互换的打分策略：embedding（图嵌入）、
// hybrid（协同过滤+内容混合）、content（TF-IDF 文本相似）。
// 三者实现同一个 core.Strategy 接口，训练产物经 persist 持久化。
package scorer

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Tokenize 把文本切分为小写词元：非字母数字作为分隔符，丢弃单字符词。
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// TFIDFIndex 是在一批文档上构建的 TF-IDF 索引。
// 词表与 IDF 在 Build 时固定，之后可对任意文本投影出同空间的向量。
type TFIDFIndex struct {
	idf     map[string]float64
	vectors map[string]map[string]float64 // docID -> term -> tf-idf 权重
	docs    int
}

// BuildTFIDF 在文档集合上构建索引。
// IDF 采用平滑形式 log((1+N)/(1+df)) + 1，避免除零与负权重。
func BuildTFIDF(documents map[string]string) *TFIDFIndex {
	idx := &TFIDFIndex{
		idf:     make(map[string]float64),
		vectors: make(map[string]map[string]float64, len(documents)),
		docs:    len(documents),
	}

	df := make(map[string]int)
	tokenized := make(map[string][]string, len(documents))
	for id, text := range documents {
		tokens := Tokenize(text)
		tokenized[id] = tokens
		seen := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			df[t]++
		}
	}

	n := float64(len(documents))
	for term, count := range df {
		idx.idf[term] = math.Log((1+n)/(1+float64(count))) + 1
	}

	for id, tokens := range tokenized {
		idx.vectors[id] = idx.project(tokens)
	}
	return idx
}

// project 把词元序列投影到索引的 TF-IDF 空间，并做 L2 归一化。
// 不在词表内的词被忽略。
func (idx *TFIDFIndex) project(tokens []string) map[string]float64 {
	if len(tokens) == 0 {
		return map[string]float64{}
	}
	tf := make(map[string]float64)
	for _, t := range tokens {
		if _, ok := idx.idf[t]; !ok {
			continue
		}
		tf[t]++
	}
	vec := make(map[string]float64, len(tf))
	var norm float64
	for term, count := range tf {
		w := (count / float64(len(tokens))) * idx.idf[term]
		vec[term] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for term := range vec {
			vec[term] /= norm
		}
	}
	return vec
}

// Vector 返回已索引文档的向量；不存在返回 nil。
func (idx *TFIDFIndex) Vector(docID string) map[string]float64 {
	return idx.vectors[docID]
}

// VectorFor 把任意文本投影到索引空间（用于用户画像等即席查询）。
func (idx *TFIDFIndex) VectorFor(text string) map[string]float64 {
	return idx.project(Tokenize(text))
}

// Index 把新文档投影到现有词表空间并登记其向量。
// 词表与 IDF 不更新：增量阶段新文档只能借用既有语义空间，
// 语料级权重在下一次全量训练时重算。
func (idx *TFIDFIndex) Index(docID, text string) {
	idx.vectors[docID] = idx.project(Tokenize(text))
	idx.docs++
}

// Vectors 返回全部文档向量（持久化用，调用方不得修改）。
func (idx *TFIDFIndex) Vectors() map[string]map[string]float64 {
	return idx.vectors
}

// TermCount 返回词表大小。
func (idx *TFIDFIndex) TermCount() int { return len(idx.idf) }

// Len 返回已索引文档数。
func (idx *TFIDFIndex) Len() int { return len(idx.vectors) }

// RestoreTFIDF 从持久化的文档向量重建索引。
// IDF 无法从向量还原，即席投影退化为词表内均权；已索引文档的
// 相似度计算不受影响。
func RestoreTFIDF(vectors map[string]map[string]float64) *TFIDFIndex {
	idx := &TFIDFIndex{
		idf:     make(map[string]float64),
		vectors: vectors,
		docs:    len(vectors),
	}
	for _, vec := range vectors {
		for term := range vec {
			if _, ok := idx.idf[term]; !ok {
				idx.idf[term] = 1
			}
		}
	}
	return idx
}

// TopTerms 返回向量中权重最高的 n 个词项（解释用）。
func TopTerms(vec map[string]float64, n int) []string {
	terms := make([]string, 0, len(vec))
	for t := range vec {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if vec[terms[i]] != vec[terms[j]] {
			return vec[terms[i]] > vec[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if n > 0 && len(terms) > n {
		terms = terms[:n]
	}
	return terms
}
