package web

// Single-page dashboard: run controls, live event log, leaderboard and the
// trade stream.
const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>PolyPulse</title>
  <link rel="preconnect" href="https://fonts.googleapis.com">
  <link rel="preconnect" href="https://fonts.gstatic.com" crossorigin>
  <link href="https://fonts.googleapis.com/css2?family=Space+Mono:wght@400;700&display=swap" rel="stylesheet">
  <style>
    :root {
      --bg:#ffffff;
      --ink:#111111;
      --ink-mid:#4d4d4d;
      --panel:#f6f6f6;
    }
    * { box-sizing:border-box; }
    body {
      margin:0;
      min-height:100vh;
      padding:2rem;
      background:var(--bg);
      color:var(--ink);
      font-family:'Space Mono','JetBrains Mono',monospace;
    }
    #app {
      width:min(1200px, 96vw);
      margin:0 auto;
      background:var(--panel);
      border:3px solid var(--ink);
      padding:2rem;
      box-shadow:12px 12px 0 rgba(0,0,0,.15);
      display:grid;
      grid-template-columns:1fr 380px;
      gap:2rem;
    }
    header { grid-column:1 / -1; display:flex; justify-content:space-between; align-items:center; gap:1rem; }
    h1 { font-size:1rem; letter-spacing:.2em; text-transform:uppercase; margin:0; }
    .status {
      font-size:.65rem;
      text-transform:uppercase;
      letter-spacing:.1em;
      border:2px solid var(--ink);
      padding:.4rem .9rem;
      background:#ffffff;
    }
    button {
      font-family:inherit;
      font-size:.7rem;
      text-transform:uppercase;
      letter-spacing:.12em;
      padding:.6rem 1.2rem;
      border:2px solid var(--ink);
      background:#fff;
      cursor:pointer;
      box-shadow:4px 4px 0 rgba(0,0,0,.15);
    }
    button:disabled { opacity:.4; cursor:default; }
    .controls { display:flex; gap:.8rem; }
    #log {
      border:2px solid var(--ink);
      background:#fff;
      padding:1rem;
      height:420px;
      overflow-y:auto;
      font-size:.7rem;
      line-height:1.5;
      white-space:pre-wrap;
    }
    aside { display:flex; flex-direction:column; gap:1.5rem; }
    .card { border:2px solid var(--ink); background:#fff; padding:1rem; font-size:.7rem; }
    .card h3 { margin:0 0 .8rem; font-size:.65rem; text-transform:uppercase; letter-spacing:.15em; border-bottom:2px solid var(--ink); padding-bottom:.6rem; }
    table { width:100%; border-collapse:collapse; }
    td, th { padding:.3rem .2rem; text-align:right; font-size:.65rem; }
    td:first-child, th:first-child { text-align:left; }
    .trade { border-bottom:1px dashed var(--ink-mid); padding:.4rem 0; }
    .pnl-pos { color:#1b9aaa; font-weight:700; }
    .pnl-neg { color:#d7263d; font-weight:700; }
    @media (max-width:820px) { #app { grid-template-columns:1fr; } }
  </style>
</head>
<body>
  <div id="app">
    <header>
      <h1>PolyPulse Paper Desk</h1>
      <div class="controls">
        <button id="runBtn">Run Once</button>
        <button id="simBtn">Simulate 3 Tiers</button>
      </div>
      <div id="status" class="status">Idle</div>
    </header>
    <div id="log">Ready. Press Run Once or Simulate.</div>
    <aside>
      <div class="card">
        <h3>Leaderboard</h3>
        <table id="leaderboard">
          <tr><th>Profile</th><th>Bankroll</th><th>PnL</th><th>Win %</th></tr>
        </table>
      </div>
      <div class="card">
        <h3>Recent Trades</h3>
        <div id="trades"></div>
      </div>
    </aside>
  </div>
<script>
const logEl = document.getElementById('log');
const statusEl = document.getElementById('status');
const runBtn = document.getElementById('runBtn');
const simBtn = document.getElementById('simBtn');
const tradesEl = document.getElementById('trades');
const MAX_TRADES = 30;

function appendLog(text){
  logEl.textContent += '\n' + text;
  logEl.scrollTop = logEl.scrollHeight;
}

function setBusy(busy){
  runBtn.disabled = busy;
  simBtn.disabled = busy;
  statusEl.textContent = busy ? 'Running…' : 'Idle';
}

function stream(path){
  setBusy(true);
  logEl.textContent = '';
  const source = new EventSource(path);
  source.addEventListener('progress', (event) => {
    try{
      const evt = JSON.parse(event.data);
      if(evt.type === 'log' && evt.message){ appendLog(evt.message); }
    }catch(err){ console.error('progress parse', err); }
  });
  source.addEventListener('summary', () => {
    appendLog('Done.');
    source.close();
    setBusy(false);
    loadDashboard();
  });
  source.addEventListener('error', () => {
    appendLog('Stream closed.');
    source.close();
    setBusy(false);
  });
}

runBtn.addEventListener('click', () => stream('/run/stream'));
simBtn.addEventListener('click', () => stream('/simulate/stream'));

function loadDashboard(){
  fetch('/api/dashboard').then((r) => r.json()).then((d) => {
    const table = document.getElementById('leaderboard');
    while(table.rows.length > 1){ table.deleteRow(1); }
    (d.leaderboard || []).forEach((row) => {
      const tr = table.insertRow();
      tr.insertCell().textContent = row.profile;
      tr.insertCell().textContent = '$' + parseFloat(row.bankroll).toFixed(2);
      const pnl = tr.insertCell();
      const value = parseFloat(row.realizedPnl);
      pnl.textContent = (value >= 0 ? '+' : '') + value.toFixed(2);
      pnl.className = value >= 0 ? 'pnl-pos' : 'pnl-neg';
      tr.insertCell().textContent = row.winRate.toFixed(0) + '%';
    });
  }).catch((err) => console.error('dashboard', err));
}

function connectTrades(){
  const source = new EventSource('/trades/stream');
  source.addEventListener('trade', (event) => {
    try{
      const row = JSON.parse(event.data);
      const div = document.createElement('div');
      div.className = 'trade';
      let text = row.event + ' ' + row.side + ' ' + row.marketId + ' $' + row.stake;
      if(row.event === 'CLOSE'){
        const pnl = parseFloat(row.pnl);
        text += ' pnl ' + (pnl >= 0 ? '+' : '') + pnl.toFixed(2) + ' (' + row.reason + ')';
        div.className += pnl >= 0 ? ' pnl-pos' : ' pnl-neg';
      }
      div.textContent = text;
      tradesEl.insertBefore(div, tradesEl.firstChild);
      while(tradesEl.children.length > MAX_TRADES){
        tradesEl.removeChild(tradesEl.lastChild);
      }
    }catch(err){ console.error('trade parse', err); }
  });
  source.addEventListener('error', () => {
    source.close();
    setTimeout(connectTrades, 2000);
  });
}

loadDashboard();
connectTrades();
</script>
</body>
</html>`
