package store

// 注意：此包只包含实现，接口定义在 core 包。
// 使用 core.Store / core.KeyValueStore / core.EntityStore 接口。
//
// 示例：
//   var kv core.KeyValueStore = NewMemoryStore()
//   var fs core.Store = NewFileStore("/var/lib/modakit/model")
//   var es core.EntityStore = NewMemoryEntityStore(users, products)
