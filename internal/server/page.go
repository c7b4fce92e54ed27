package server

const indexHTML = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Screen State Recognizer</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; background-color: #f5f5f5; }
        .container { max-width: 760px; margin: 0 auto; background: white; padding: 20px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1); }
        h1 { color: #333; text-align: center; margin-bottom: 30px; }
        .status { padding: 10px; margin: 10px 0; border-radius: 4px; font-weight: bold; text-align: center; }
        .status.stopped { background-color: #fee; color: #c33; }
        .status.running { background-color: #efe; color: #3c3; }
        .buttons { text-align: center; margin: 20px 0; }
        button { padding: 10px 20px; margin: 0 5px; border: none; border-radius: 4px; cursor: pointer; font-size: 14px; }
        .start { background-color: #4CAF50; color: white; }
        .stop { background-color: #f44336; color: white; }
        .test { background-color: #2196F3; color: white; }
        .reload { background-color: #795548; color: white; }
        .clear { background-color: #ff9800; color: white; }
        button:hover { opacity: 0.8; }
        .result { background-color: #e3f2fd; padding: 10px; margin: 10px 0; border-radius: 4px; font-size: 13px; }
        .result pre { margin: 6px 0 0; white-space: pre-wrap; }
        .log { height: 300px; overflow-y: auto; border: 1px solid #ddd; padding: 10px; background-color: #fafafa; font-family: monospace; font-size: 12px; }
        .log-entry { margin: 2px 0; padding: 2px 0; }
        .timestamp { color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Screen State Recognizer</h1>
        <div id="status" class="status stopped">Status: stopped</div>
        <div class="buttons">
            <button class="start" onclick="sendAction('start')">Start</button>
            <button class="stop" onclick="sendAction('stop')">Stop</button>
            <button class="test" onclick="sendAction('recognize')">Recognize now</button>
            <button class="test" onclick="sendAction('test')">Environment test</button>
            <button class="reload" onclick="sendAction('reload')">Reload catalogs</button>
            <button class="clear" onclick="clearLog()">Clear log</button>
        </div>
        <div class="result">
            <strong>Last result:</strong> <span id="state">none</span>
            <pre id="detail"></pre>
        </div>
        <h3>Log:</h3>
        <div id="log" class="log"></div>
    </div>

    <script>
        const ws = new WebSocket('ws://' + location.host + '/ws');

        ws.onmessage = function(event) {
            const data = JSON.parse(event.data);
            if (data.type === 'log') {
                addLog(data);
            } else if (data.type === 'status') {
                updateStatus(data);
            } else if (data.type === 'result') {
                showResult(data.report);
            } else {
                addLog({timestamp: new Date().toLocaleTimeString(), message: data.type + ': ' + JSON.stringify(data.data)});
            }
        };

        function addLog(data) {
            const log = document.getElementById('log');
            const entry = document.createElement('div');
            entry.className = 'log-entry';
            const ts = document.createElement('span');
            ts.className = 'timestamp';
            ts.textContent = '[' + data.timestamp + '] ';
            entry.appendChild(ts);
            entry.appendChild(document.createTextNode(data.message));
            log.appendChild(entry);
            log.scrollTop = log.scrollHeight;
        }

        function updateStatus(data) {
            const status = document.getElementById('status');
            status.textContent = 'Status: ' + data.status;
            status.className = 'status ' + (data.status === 'stopped' ? 'stopped' : 'running');
        }

        function showResult(report) {
            const r = report.result;
            let label = r.state + ' (' + r.method;
            if (r.confidence !== undefined) {
                label += ', ' + r.confidence.toFixed(3);
            }
            document.getElementById('state').textContent = label + ')';
            document.getElementById('detail').textContent = JSON.stringify(r.ocr_detail || report.scores, null, 2);
        }

        function sendAction(action) {
            ws.send(JSON.stringify({action: action}));
        }

        function clearLog() {
            document.getElementById('log').innerHTML = '';
        }
    </script>
</body>
</html>
`
