package lane

import "github.com/sirupsen/logrus"

// log 车道模块的日志记录器
// 说明：使用logrus库，并添加"module"字段标识为"lane"模块
var log = logrus.WithField("module", "lane")
